package gateway

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaygate/auth"
	"github.com/kbukum/relaygate/auth/authctx"
	"github.com/kbukum/relaygate/auth/jwt"
	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/logger"
	"github.com/kbukum/relaygate/server"
	"github.com/kbukum/relaygate/server/middleware"
)

// Claims is the token payload issued by user-service.
type Claims struct {
	jwt.RegisteredClaims
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SetDefaults lets jwt.Service.GenerateAccess stamp the registered claims.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if issuer != "" {
		c.Issuer = issuer
	}
	if len(audience) > 0 {
		c.Audience = audience
	}
}

// UserID returns the id claim, falling back to the subject.
func (c *Claims) UserID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Subject
}

// NewClaims returns an empty Claims for token parsing.
func NewClaims() *Claims { return &Claims{} }

// Router proxies requests that match the route table. It is installed as
// the engine's NoRoute handler, so operational and aggregate routes
// registered on the engine take precedence.
type Router struct {
	table     *RouteTable
	forwarder *Forwarder
	validator auth.TokenValidator
	log       *logger.Logger
}

// NewRouter creates a Router. A nil validator disables the auth gate.
func NewRouter(table *RouteTable, fwd *Forwarder, validator auth.TokenValidator, log *logger.Logger) *Router {
	return &Router{
		table:     table,
		forwarder: fwd,
		validator: validator,
		log:       log.WithComponent("router"),
	}
}

// Table returns the route table.
func (r *Router) Table() *RouteTable { return r.table }

// Handle runs match, auth gate and forward, then relays the reply. An
// unmatched path never touches the registry or a breaker.
func (r *Router) Handle(c *gin.Context) {
	req := c.Request
	m, ok := r.table.Match(req.Method, req.URL.Path)
	if !ok {
		server.RespondWithError(c, apperrors.RouteNotFound(req.Method, req.URL.Path))
		return
	}

	if m.Rule.AuthRequired && r.validator != nil {
		claims, appErr := auth.Authenticate(r.validator, req.Header.Get("Authorization"))
		if appErr != nil {
			server.RespondWithError(c, appErr)
			return
		}
		setClaims(c, claims)
	}

	body, err := readBody(req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	resp, err := r.forwarder.Call(req.Context(), m.Rule.Destination, OutboundRequest{
		Method:   req.Method,
		Path:     m.Path,
		RawQuery: req.URL.RawQuery,
		Headers:  req.Header,
		Body:     body,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondRaw(c, resp.StatusCode, resp.ContentType(), resp.Body)
}

func setClaims(c *gin.Context, claims any) {
	c.Set(middleware.ClaimsKey, claims)
	ctx := authctx.Set(c.Request.Context(), claims)
	if cl, ok := claims.(*Claims); ok {
		c.Set("user_id", cl.UserID())
		ctx = logger.ContextWithUserID(ctx, cl.UserID())
	}
	c.Request = c.Request.WithContext(ctx)
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge).
				WithDetail("limit", tooLarge.Limit)
		}
		return nil, apperrors.Validation("Unable to read request body.").WithCause(err)
	}
	return body, nil
}
