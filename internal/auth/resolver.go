package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pixelvault/marketplace/internal/domain"
	"github.com/pixelvault/marketplace/internal/session"
)

// ResultKind classifies what a strategy concluded about a request.
type ResultKind int

const (
	// Skipped means the strategy found no credential of its kind.
	Skipped ResultKind = iota
	// Resolved means the strategy produced an identity.
	Resolved
	// Rejected means a credential was present but did not verify.
	Rejected
	// Failed means the strategy could not decide because a dependency failed.
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is returned by a Strategy.
type Result struct {
	Kind     ResultKind
	Identity *domain.Identity
	Err      error
}

func skip() Result                              { return Result{Kind: Skipped} }
func resolved(identity *domain.Identity) Result { return Result{Kind: Resolved, Identity: identity} }
func reject(err error) Result                   { return Result{Kind: Rejected, Err: err} }
func fail(err error) Result                     { return Result{Kind: Failed, Err: err} }

// Strategy is one way of authenticating a request.
type Strategy interface {
	Name() string
	Resolve(c *fiber.Ctx) Result
}

// StrategyError records why a strategy rejected the request's credential.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

// Resolution is the outcome of running all strategies. A nil Identity means unauthenticated.
type Resolution struct {
	Identity   *domain.Identity
	Rejections []StrategyError
}

// Authenticated reports whether an identity was resolved.
func (r Resolution) Authenticated() bool {
	return r.Identity != nil
}

// OutcomeRecorder receives one observation per strategy consulted.
type OutcomeRecorder interface {
	RecordAuthResolution(strategy, outcome string)
}

// Resolver runs strategies in order and stops at the first identity.
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
	recorder   OutcomeRecorder
}

// NewResolver builds a resolver over the given ordered strategies.
func NewResolver(logger *zap.Logger, recorder OutcomeRecorder, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{strategies: strategies, logger: logger, recorder: recorder}
}

// Resolve walks the strategies. Rejections are recorded and resolution continues;
// a Failed strategy aborts with its error.
func (r *Resolver) Resolve(c *fiber.Ctx) (Resolution, error) {
	var res Resolution
	for _, strategy := range r.strategies {
		result := strategy.Resolve(c)
		r.record(strategy.Name(), result.Kind)

		switch result.Kind {
		case Resolved:
			res.Identity = result.Identity
			return res, nil
		case Rejected:
			r.logger.Warn("credential rejected",
				zap.String("strategy", strategy.Name()),
				zap.String("path", c.Path()),
				zap.Error(result.Err))
			res.Rejections = append(res.Rejections, StrategyError{Strategy: strategy.Name(), Err: result.Err})
		case Failed:
			return res, fmt.Errorf("%s: %w", strategy.Name(), result.Err)
		}
	}
	return res, nil
}

func (r *Resolver) record(strategy string, kind ResultKind) {
	if r.recorder == nil {
		return
	}
	r.recorder.RecordAuthResolution(strategy, kind.String())
}

// TokenStrategy reads a first-party credential from the token cookie, then the bearer header.
type TokenStrategy struct {
	codec *TokenCodec
}

// NewTokenStrategy builds the first-party strategy.
func NewTokenStrategy(codec *TokenCodec) *TokenStrategy {
	return &TokenStrategy{codec: codec}
}

func (s *TokenStrategy) Name() string { return "token" }

func (s *TokenStrategy) Resolve(c *fiber.Ctx) Result {
	raw := credentialFromRequest(c)
	if raw == "" {
		return skip()
	}
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return reject(err)
	}
	return resolved(&domain.Identity{ID: claims.SubjectID(), Role: claims.Role})
}

func credentialFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(TokenCookieName)); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionLookup finds provider sessions by cookie value.
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (*domain.Session, error)
}

// SessionStrategy resolves a social-login session from its cookie.
type SessionStrategy struct {
	sessions   SessionLookup
	cookieName string
}

// NewSessionStrategy builds the provider-session strategy.
func NewSessionStrategy(sessions SessionLookup, cookieName string) *SessionStrategy {
	return &SessionStrategy{sessions: sessions, cookieName: cookieName}
}

func (s *SessionStrategy) Name() string { return "session" }

func (s *SessionStrategy) Resolve(c *fiber.Ctx) Result {
	id := strings.TrimSpace(c.Cookies(s.cookieName))
	if id == "" || s.sessions == nil {
		return skip()
	}
	sess, err := s.sessions.Lookup(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return reject(err)
		}
		return fail(err)
	}
	if sess == nil || sess.UserID == "" {
		return reject(errors.New("session has no user"))
	}
	role := domain.RoleUser
	if sess.Role != "" {
		parsed, ok := domain.ParseRole(sess.Role)
		if !ok {
			return reject(fmt.Errorf("unknown session role %q", sess.Role))
		}
		role = parsed
	}
	return resolved(&domain.Identity{ID: sess.UserID, Role: role})
}
