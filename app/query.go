package app

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/kudos/bank"
	"github.com/blockberries/kudos/engine"
	"github.com/blockberries/kudos/nft"
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Query paths. Account arguments are the raw 32 bytes of the AccountID.
const (
	PathReputation   types.QueryPath = "/reputation"
	PathContributor  types.QueryPath = "/contributor"
	PathRole         types.QueryPath = "/role"
	PathRound        types.QueryPath = "/round"
	PathCurrentRound types.QueryPath = "/round/current"
	PathContributors types.QueryPath = "/contributors"
	PathBalance      types.QueryPath = "/balance"
	PathTokens       types.QueryPath = "/tokens"
	PathMinElapsed   types.QueryPath = "/min-elapsed"
)

// RoundReport is the result data of a successful close_round call.
type RoundReport struct {
	RoundID         types.RoundID     `cramberry:"1"`
	TotalVotes      uint64            `cramberry:"2"`
	TotalReputation uint64            `cramberry:"3"`
	Distributed     types.Balance     `cramberry:"4"`
	Remainder       types.Balance     `cramberry:"5"`
	Winners         []types.AccountID `cramberry:"6"`
}

func reportOf(st engine.Settlement) RoundReport {
	r := RoundReport{
		RoundID:         st.RoundID,
		TotalVotes:      st.TotalVotes,
		TotalReputation: st.TotalReputation,
		Distributed:     st.Distributed,
		Remainder:       st.Remainder,
	}
	for _, a := range st.Awards {
		r.Winners = append(r.Winners, a.Account)
	}
	return r
}

// RoundStatus answers /round/current.
type RoundStatus struct {
	ID     types.RoundID `cramberry:"1"`
	Round  types.Round   `cramberry:"2"`
	Active bool          `cramberry:"3"`
}

// ContributorList answers /contributors.
type ContributorList struct {
	Contributors []types.Contributor `cramberry:"1"`
}

// TokenList answers /tokens.
type TokenList struct {
	Tokens []types.Token `cramberry:"1"`
}

func encode(v any) ([]byte, error) {
	return cramberry.Marshal(v)
}

func (app *App) Query(_ context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	height := app.height
	if req.Height != nil && *req.Height != height {
		return types.StateQueryResult{Code: CodeHeightMissing, Info: "only the latest height is retained", Height: height}, nil
	}
	fail := func(code uint32, info string) (types.StateQueryResult, error) {
		return types.StateQueryResult{Code: code, Info: info, Height: height}, nil
	}
	ok := func(value []byte, err error) (types.StateQueryResult, error) {
		if err != nil {
			return fail(queryCode(err), err.Error())
		}
		return types.StateQueryResult{Key: req.Data, Value: value, Height: height}, nil
	}

	p, err := loadParams(app.store)
	if err != nil {
		return fail(engine.CodeCorruptState, err.Error())
	}
	eng := app.newEngine(app.store, p, app.clock, engine.NopSink{})

	switch req.Path {
	case PathReputation:
		a, err := types.AccountFromBytes(req.Data)
		if err != nil {
			return fail(CodeBadQuery, err.Error())
		}
		rep, err := eng.Reputation(a)
		if err != nil {
			return ok(nil, err)
		}
		return ok(store.Uint32Bytes(uint32(rep)), nil)

	case PathContributor:
		a, err := types.AccountFromBytes(req.Data)
		if err != nil {
			return fail(CodeBadQuery, err.Error())
		}
		rec, err := eng.Contributor(a)
		if err != nil {
			return ok(nil, err)
		}
		return ok(encode(rec))

	case PathRole:
		a, err := types.AccountFromBytes(req.Data)
		if err != nil {
			return fail(CodeBadQuery, err.Error())
		}
		role, err := eng.Role(a)
		return ok([]byte{byte(role)}, err)

	case PathRound:
		if len(req.Data) != 4 {
			return fail(CodeBadQuery, "data must be a 4-byte big-endian round id")
		}
		r, found, err := eng.Round(types.RoundID(binary.BigEndian.Uint32(req.Data)))
		if err != nil {
			return ok(nil, err)
		}
		if !found {
			return fail(CodeNotFound, "round not found")
		}
		return ok(encode(r))

	case PathCurrentRound:
		id, r, active, err := eng.ActiveRound()
		if err != nil {
			return ok(nil, err)
		}
		if id == 0 {
			return fail(CodeNotFound, "no round opened yet")
		}
		return ok(encode(RoundStatus{ID: id, Round: r, Active: active}))

	case PathContributors:
		all, err := eng.Contributors()
		if err != nil {
			return ok(nil, err)
		}
		return ok(encode(ContributorList{Contributors: all}))

	case PathBalance:
		a, err := types.AccountFromBytes(req.Data)
		if err != nil {
			return fail(CodeBadQuery, err.Error())
		}
		bal, err := bank.BalanceOf(app.store, a)
		return ok(store.Uint64Bytes(uint64(bal)), err)

	case PathTokens:
		a, err := types.AccountFromBytes(req.Data)
		if err != nil {
			return fail(CodeBadQuery, err.Error())
		}
		toks, err := nft.TokensOf(app.store, a)
		if err != nil {
			return ok(nil, err)
		}
		return ok(encode(TokenList{Tokens: toks}))

	case PathMinElapsed:
		return ok(store.Uint64Bytes(uint64(eng.MinElapsed())), nil)

	default:
		return fail(CodeUnknownPath, "unknown query path")
	}
}

func queryCode(err error) uint32 {
	if errors.Is(err, engine.ErrMemberNotExist) {
		return CodeNotFound
	}
	return engine.Code(err)
}
