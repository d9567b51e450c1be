package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/trustmesh/rpn/challenge"
	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/graph"
	"github.com/trustmesh/rpn/jsonx"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/refresh"
	"github.com/trustmesh/rpn/stakeledger"
	"github.com/trustmesh/rpn/types"
	"github.com/trustmesh/rpn/utils"
)

// --- Error type used by handlers ---

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func toJRPC2Error(e *rpcError) error {
	if e == nil {
		return nil
	}
	var protoErr errors.ProtocolError
	err := jsonx.Unmarshal([]byte(e.Message), &protoErr)
	if err == nil && protoErr.Code != "" {
		return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", protoErr.Message).WithData(protoErr)
	}
	return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", e.Message)
}

func domainErr(err error) *rpcError {
	return &rpcError{Code: -32000, Message: err.Error()}
}

func paramErr(err error) *rpcError {
	return &rpcError{Code: -32602, Message: err.Error()}
}

// --- Params / Results ---

// Graph
type upsertEdgeParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight string `json:"weight"` // decimal score, e.g. "0.75"
}

type removeEdgeParams struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type setSeedsParams struct {
	Seeds []string `json:"seeds"`
}

type edgeResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight string `json:"weight"`
	Exists bool   `json:"exists"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type getScoreParams struct {
	Account string `json:"account"`
}

type getScoreResponse struct {
	Account string `json:"account"`
	Score   string `json:"score"`
	Epoch   uint64 `json:"epoch"`
}

// Refresh submissions
type submitRefreshParams struct {
	Epoch             uint64            `json:"epoch"`
	Submitter         string            `json:"submitter"`
	MerkleRoot        string            `json:"merkle_root"`         // hex, 32 bytes
	FinalScoresDigest string            `json:"final_scores_digest"` // hex, 32 bytes
	StepCount         uint64            `json:"step_count"`
	FinalScores       map[string]string `json:"final_scores"` // account -> decimal score
	LastStep          *stepRecordParam  `json:"last_step,omitempty"`
	LastStepProof     *merkleProofParam `json:"last_step_proof,omitempty"`
	Stake             string            `json:"stake"` // decimal amount
}

type submissionInfo struct {
	ID                string `json:"id"`
	Epoch             uint64 `json:"epoch"`
	Submitter         string `json:"submitter"`
	SnapshotDigest    string `json:"snapshot_digest"`
	MerkleRoot        string `json:"merkle_root"`
	FinalScoresDigest string `json:"final_scores_digest"`
	StepCount         uint64 `json:"step_count"`
	Stake             string `json:"stake"`
	SubmittedAt       uint64 `json:"submitted_at"`
	WindowDeadline    uint64 `json:"window_deadline"`
	Status            string `json:"status"`
}

type getSubmissionParams struct {
	ID string `json:"id"`
}

// Challenge game
type openChallengeParams struct {
	SubmissionID string `json:"submission_id"`
	Challenger   string `json:"challenger"`
	Stake        string `json:"stake"`
}

type proposeParams struct {
	SubmissionID string `json:"submission_id"`
	Caller       string `json:"caller"`
	Digest       string `json:"digest"` // hex, 32 bytes
}

type respondParams struct {
	SubmissionID string `json:"submission_id"`
	Caller       string `json:"caller"`
	Agree        bool   `json:"agree"`
}

type stepRecordParam struct {
	Index             uint64 `json:"index"`
	Pass              uint32 `json:"pass"`
	Account           string `json:"account"`
	PrevScore         string `json:"prev_score"`
	NewScore          string `json:"new_score"`
	InputStateDigest  string `json:"input_state_digest"`
	OutputStateDigest string `json:"output_state_digest"`
}

type merkleProofParam struct {
	Index    uint64   `json:"index"`
	Siblings []string `json:"siblings"` // hex, 32 bytes each
}

type trusterWitnessParam struct {
	Account string           `json:"account"`
	Score   string           `json:"score"`
	Proof   merkleProofParam `json:"proof"`
}

type finalStepProofParams struct {
	SubmissionID string                `json:"submission_id"`
	Step         stepRecordParam       `json:"step"`
	Inclusion    merkleProofParam      `json:"inclusion"`
	LeafProof    merkleProofParam      `json:"leaf_proof"`
	Trusters     []trusterWitnessParam `json:"trusters"`
}

type proveStepParams struct {
	Epoch uint64 `json:"epoch"`
	Index uint64 `json:"index"`
}

type proveStepResponse struct {
	Step      stepRecordParam       `json:"step"`
	Inclusion merkleProofParam      `json:"inclusion"`
	LeafProof merkleProofParam      `json:"leaf_proof"`
	Trusters  []trusterWitnessParam `json:"trusters"`
}

type finalizeParams struct {
	SubmissionID string `json:"submission_id"`
}

type resolutionResponse struct {
	Resolution string `json:"resolution"`
}

type challengeInfo struct {
	SubmissionID      string `json:"submission_id"`
	Challenger        string `json:"challenger"`
	Stake             string `json:"stake"`
	Lo                uint64 `json:"lo"`
	Hi                uint64 `json:"hi"`
	Round             uint32 `json:"round"`
	Mover             string `json:"mover"`
	Phase             string `json:"phase"`
	AgreedInputDigest string `json:"agreed_input_digest"`
	ProposedDigest    string `json:"proposed_digest"`
	ProposedMid       uint64 `json:"proposed_mid"`
	RoundDeadline     uint64 `json:"round_deadline"`
	Status            string `json:"status"`
}

type getChallengeParams struct {
	SubmissionID string `json:"submission_id"`
}

// Stake ledger
type getBalanceParams struct {
	Account string `json:"account"`
}

type getBalanceResponse struct {
	Account   string `json:"account"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

// --- Server ---

type Server struct {
	addr       string
	graph      *graph.Store
	challenges *challenge.Manager
	refresher  *refresh.Manager
	ledger     *stakeledger.Ledger
	corsConfig CORSConfig
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

func NewServer(addr string, graphStore *graph.Store, challenges *challenge.Manager, refresher *refresh.Manager, ledger *stakeledger.Ledger) *Server {
	return &Server{
		addr:       addr,
		graph:      graphStore,
		challenges: challenges,
		refresher:  refresher,
		ledger:     ledger,
		corsConfig: CORSConfig{
			AllowedOrigins: []string{},
			AllowedMethods: []string{},
			AllowedHeaders: []string{},
			MaxAge:         0,
		},
	}
}

func (s *Server) Start() {
	methods := s.buildMethodMap()
	jh := jhttp.NewBridge(methods, &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		jh.ServeHTTP(w, r)
	})

	http.Handle("/", h)
	logx.Info("RPC", "JSON-RPC server listening on", s.addr)
	go http.ListenAndServe(s.addr, nil)
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodGraphUpsertEdge: handler.New(func(ctx context.Context, p upsertEdgeParams) (*okResponse, error) {
			res, err := s.rpcUpsertEdge(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodGraphRemoveEdge: handler.New(func(ctx context.Context, p removeEdgeParams) (*okResponse, error) {
			res, err := s.rpcRemoveEdge(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodGraphSetSeeds: handler.New(func(ctx context.Context, p setSeedsParams) (*okResponse, error) {
			res, err := s.rpcSetSeeds(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodGraphGetEdge: handler.New(func(ctx context.Context, p removeEdgeParams) (*edgeResponse, error) {
			res, err := s.rpcGetEdge(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodGraphGetScore: handler.New(func(ctx context.Context, p getScoreParams) (*getScoreResponse, error) {
			res, err := s.rpcGetScore(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodRefreshSubmit: handler.New(func(ctx context.Context, p submitRefreshParams) (*submissionInfo, error) {
			res, err := s.rpcSubmitRefresh(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodRefreshGetSubmission: handler.New(func(ctx context.Context, p getSubmissionParams) (*submissionInfo, error) {
			res, err := s.rpcGetSubmission(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodRefreshProveStep: handler.New(func(ctx context.Context, p proveStepParams) (*proveStepResponse, error) {
			res, err := s.rpcProveStep(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengeOpen: handler.New(func(ctx context.Context, p openChallengeParams) (*challengeInfo, error) {
			res, err := s.rpcOpenChallenge(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengePropose: handler.New(func(ctx context.Context, p proposeParams) (*challengeInfo, error) {
			res, err := s.rpcPropose(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengeRespond: handler.New(func(ctx context.Context, p respondParams) (*challengeInfo, error) {
			res, err := s.rpcRespond(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengeFinalStepProof: handler.New(func(ctx context.Context, p finalStepProofParams) (*resolutionResponse, error) {
			res, err := s.rpcFinalStepProof(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengeFinalize: handler.New(func(ctx context.Context, p finalizeParams) (*resolutionResponse, error) {
			res, err := s.rpcFinalize(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodChallengeGet: handler.New(func(ctx context.Context, p getChallengeParams) (*challengeInfo, error) {
			res, err := s.rpcGetChallenge(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodStakeGetBalance: handler.New(func(ctx context.Context, p getBalanceParams) (*getBalanceResponse, error) {
			res, err := s.rpcGetBalance(p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return res, nil
		}),
		MethodHealthCheck: handler.New(func(ctx context.Context) (map[string]string, error) {
			return map[string]string{"status": "ok"}, nil
		}),
	}
}

// --- Handlers ---

func (s *Server) rpcUpsertEdge(p upsertEdgeParams) (*okResponse, *rpcError) {
	weight, err := types.ParseScore(p.Weight)
	if err != nil {
		return nil, paramErr(err)
	}
	if err := s.graph.UpsertEdge(p.From, p.To, weight); err != nil {
		return nil, domainErr(err)
	}
	return &okResponse{Ok: true}, nil
}

func (s *Server) rpcRemoveEdge(p removeEdgeParams) (*okResponse, *rpcError) {
	if err := s.graph.RemoveEdge(p.From, p.To); err != nil {
		return nil, domainErr(err)
	}
	return &okResponse{Ok: true}, nil
}

func (s *Server) rpcSetSeeds(p setSeedsParams) (*okResponse, *rpcError) {
	if err := s.graph.SetSeeds(p.Seeds); err != nil {
		return nil, domainErr(err)
	}
	return &okResponse{Ok: true}, nil
}

func (s *Server) rpcGetEdge(p removeEdgeParams) (*edgeResponse, *rpcError) {
	weight, ok := s.graph.GetEdge(p.From, p.To)
	resp := &edgeResponse{From: p.From, To: p.To, Exists: ok}
	if ok {
		resp.Weight = weight.String()
	}
	return resp, nil
}

func (s *Server) rpcGetScore(p getScoreParams) (*getScoreResponse, *rpcError) {
	score, err := s.challenges.GetScore(p.Account)
	if err != nil {
		return nil, domainErr(err)
	}
	epoch, err := s.challenges.LatestScoreEpoch()
	if err != nil {
		return nil, domainErr(err)
	}
	return &getScoreResponse{Account: p.Account, Score: score.String(), Epoch: epoch}, nil
}

func (s *Server) rpcSubmitRefresh(p submitRefreshParams) (*submissionInfo, *rpcError) {
	root, err := parseDigest(p.MerkleRoot)
	if err != nil {
		return nil, paramErr(err)
	}
	scoresDigest, err := parseDigest(p.FinalScoresDigest)
	if err != nil {
		return nil, paramErr(err)
	}
	finalScores := make(map[string]types.Score, len(p.FinalScores))
	for acct, raw := range p.FinalScores {
		score, err := types.ParseScore(raw)
		if err != nil {
			return nil, paramErr(fmt.Errorf("score for %s: %w", acct, err))
		}
		finalScores[acct] = score
	}
	stake, err := utils.Uint256FromString(p.Stake)
	if err != nil {
		return nil, paramErr(err)
	}
	var lastStep *types.StepRecord
	var lastProof types.MerkleProof
	if p.LastStep != nil {
		lastStep, err = parseStepRecord(*p.LastStep)
		if err != nil {
			return nil, paramErr(err)
		}
	}
	if p.LastStepProof != nil {
		lastProof, err = parseMerkleProof(*p.LastStepProof)
		if err != nil {
			return nil, paramErr(err)
		}
	}
	sub, err := s.challenges.Submit(p.Epoch, p.Submitter, root, scoresDigest, p.StepCount, finalScores, lastStep, lastProof, stake)
	if err != nil {
		return nil, domainErr(err)
	}
	return toSubmissionInfo(sub), nil
}

func (s *Server) rpcGetSubmission(p getSubmissionParams) (*submissionInfo, *rpcError) {
	sub, err := s.challenges.GetSubmission(p.ID)
	if err != nil {
		return nil, domainErr(err)
	}
	if sub == nil {
		return nil, domainErr(errors.NewError(errors.ErrCodeSubmissionNotFound, errors.ErrMsgSubmissionNotFound))
	}
	return toSubmissionInfo(sub), nil
}

// rpcProveStep rebuilds one propagation step from the node's own snapshot. An
// honest submitter answers the final bisection stage with the returned proof.
func (s *Server) rpcProveStep(p proveStepParams) (*proveStepResponse, *rpcError) {
	step, inclusion, witness, err := s.refresher.ProveStep(p.Epoch, p.Index)
	if err != nil {
		return nil, domainErr(err)
	}
	trusters := make([]trusterWitnessParam, len(witness.Trusters))
	for i, t := range witness.Trusters {
		trusters[i] = trusterWitnessParam{
			Account: t.Account,
			Score:   t.Score.String(),
			Proof:   merkleProofToParam(t.Proof),
		}
	}
	return &proveStepResponse{
		Step: stepRecordParam{
			Index:             step.Index,
			Pass:              step.Pass,
			Account:           step.Account,
			PrevScore:         step.PrevScore.String(),
			NewScore:          step.NewScore.String(),
			InputStateDigest:  digestHex(step.InputStateDigest),
			OutputStateDigest: digestHex(step.OutputStateDigest),
		},
		Inclusion: merkleProofToParam(inclusion),
		LeafProof: merkleProofToParam(witness.LeafProof),
		Trusters:  trusters,
	}, nil
}

func (s *Server) rpcOpenChallenge(p openChallengeParams) (*challengeInfo, *rpcError) {
	stake, err := utils.Uint256FromString(p.Stake)
	if err != nil {
		return nil, paramErr(err)
	}
	game, err := s.challenges.OpenChallenge(p.SubmissionID, p.Challenger, stake)
	if err != nil {
		return nil, domainErr(err)
	}
	return toChallengeInfo(game), nil
}

func (s *Server) rpcPropose(p proposeParams) (*challengeInfo, *rpcError) {
	digest, err := parseDigest(p.Digest)
	if err != nil {
		return nil, paramErr(err)
	}
	game, err := s.challenges.Propose(p.SubmissionID, p.Caller, digest)
	if err != nil {
		return nil, domainErr(err)
	}
	return toChallengeInfo(game), nil
}

func (s *Server) rpcRespond(p respondParams) (*challengeInfo, *rpcError) {
	game, err := s.challenges.Respond(p.SubmissionID, p.Caller, p.Agree)
	if err != nil {
		return nil, domainErr(err)
	}
	return toChallengeInfo(game), nil
}

func (s *Server) rpcFinalStepProof(p finalStepProofParams) (*resolutionResponse, *rpcError) {
	step, err := parseStepRecord(p.Step)
	if err != nil {
		return nil, paramErr(err)
	}
	inclusion, err := parseMerkleProof(p.Inclusion)
	if err != nil {
		return nil, paramErr(err)
	}
	leafProof, err := parseMerkleProof(p.LeafProof)
	if err != nil {
		return nil, paramErr(err)
	}
	trusters := make([]types.TrusterWitness, len(p.Trusters))
	for i, t := range p.Trusters {
		score, err := types.ParseScore(t.Score)
		if err != nil {
			return nil, paramErr(fmt.Errorf("truster %s score: %w", t.Account, err))
		}
		proof, err := parseMerkleProof(t.Proof)
		if err != nil {
			return nil, paramErr(fmt.Errorf("truster %s proof: %w", t.Account, err))
		}
		trusters[i] = types.TrusterWitness{Account: t.Account, Score: score, Proof: proof}
	}
	witness := &types.StepWitness{LeafProof: leafProof, Trusters: trusters}
	res, err := s.challenges.SubmitFinalStepProof(p.SubmissionID, step, inclusion, witness)
	if err != nil {
		return nil, domainErr(err)
	}
	return &resolutionResponse{Resolution: res.String()}, nil
}

func (s *Server) rpcFinalize(p finalizeParams) (*resolutionResponse, *rpcError) {
	res, err := s.challenges.Finalize(p.SubmissionID)
	if err != nil {
		return nil, domainErr(err)
	}
	return &resolutionResponse{Resolution: res.String()}, nil
}

func (s *Server) rpcGetChallenge(p getChallengeParams) (*challengeInfo, *rpcError) {
	game, err := s.challenges.GetChallenge(p.SubmissionID)
	if err != nil {
		return nil, domainErr(err)
	}
	if game == nil {
		return nil, domainErr(errors.NewError(errors.ErrCodeChallengeNotFound, errors.ErrMsgChallengeNotFound))
	}
	return toChallengeInfo(game), nil
}

func (s *Server) rpcGetBalance(p getBalanceParams) (*getBalanceResponse, *rpcError) {
	return &getBalanceResponse{
		Account:   p.Account,
		Available: s.ledger.AvailableBalance(p.Account).Dec(),
		Locked:    s.ledger.LockedBalance(p.Account).Dec(),
	}, nil
}

// --- Conversions ---

func toSubmissionInfo(sub *types.Submission) *submissionInfo {
	return &submissionInfo{
		ID:                sub.ID,
		Epoch:             sub.Epoch,
		Submitter:         sub.Submitter,
		SnapshotDigest:    digestHex(sub.SnapshotDigest),
		MerkleRoot:        digestHex(sub.MerkleRoot),
		FinalScoresDigest: digestHex(sub.FinalScoresDigest),
		StepCount:         sub.StepCount,
		Stake:             utils.Uint256ToString(sub.Stake),
		SubmittedAt:       sub.SubmittedAt,
		WindowDeadline:    sub.WindowDeadline,
		Status:            sub.Status.String(),
	}
}

func toChallengeInfo(game *types.ChallengeGame) *challengeInfo {
	return &challengeInfo{
		SubmissionID:      game.SubmissionID,
		Challenger:        game.Challenger,
		Stake:             utils.Uint256ToString(game.Stake),
		Lo:                game.Lo,
		Hi:                game.Hi,
		Round:             game.Round,
		Mover:             game.Mover.String(),
		Phase:             game.Phase.String(),
		AgreedInputDigest: digestHex(game.AgreedInputDigest),
		ProposedDigest:    digestHex(game.ProposedDigest),
		ProposedMid:       game.ProposedMid,
		RoundDeadline:     game.RoundDeadline,
		Status:            game.Status.String(),
	}
}

// --- Helpers ---

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
	}

	if len(s.corsConfig.AllowedMethods) > 0 {
		methods := strings.Join(s.corsConfig.AllowedMethods, ", ")
		w.Header().Set("Access-Control-Allow-Methods", methods)
	}

	if len(s.corsConfig.AllowedHeaders) > 0 {
		headers := strings.Join(s.corsConfig.AllowedHeaders, ", ")
		w.Header().Set("Access-Control-Allow-Headers", headers)
	}

	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.corsConfig.MaxAge))
	}
}

// CORSFromEnv reads environment variables and constructs a CORSConfig.
// Returns (cfg, true) if any CORS-related env var is set; otherwise (zero, false).
//
// Env vars:
// - CORS_ALLOWED_ORIGINS: comma-separated list
// - CORS_ALLOWED_METHODS: comma-separated list
// - CORS_ALLOWED_HEADERS: comma-separated list
// - CORS_MAX_AGE: integer seconds
func CORSFromEnv() (CORSConfig, bool) {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	methods := os.Getenv("CORS_ALLOWED_METHODS")
	headers := os.Getenv("CORS_ALLOWED_HEADERS")
	maxAgeStr := os.Getenv("CORS_MAX_AGE")

	if origins == "" && methods == "" && headers == "" && maxAgeStr == "" {
		return CORSConfig{}, false
	}

	cfg := CORSConfig{}
	if origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}
	if methods != "" {
		cfg.AllowedMethods = splitAndTrim(methods)
	}
	if headers != "" {
		cfg.AllowedHeaders = splitAndTrim(headers)
	}
	if maxAgeStr != "" {
		if maxAge, err := strconv.Atoi(maxAgeStr); err == nil {
			cfg.MaxAge = maxAge
		}
	}
	return cfg, true
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
