package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/oauth2"
)

// Default credential retry policy
const (
	DefaultAuthRetries       = 10
	DefaultAuthRetryInterval = 2 * time.Second
	// freeAttempts is the number of attempts made without sleeping first.
	freeAttempts = 2
)

// Token environment variables consulted for HTTPS remotes, in order.
var tokenEnvVars = []string{"UPSYNC_GIT_TOKEN", "GITHUB_TOKEN"}

// ErrNoCredentials is returned by a CredentialResolver that has nothing to offer.
var ErrNoCredentials = errors.New("no credentials available")

// RetryState counts the credential attempts made by one fetch. It is owned
// by the caller and threaded through every attempt.
type RetryState struct {
	Attempts int
}

// RetryPolicy bounds credential retries
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultAuthRetries, Interval: DefaultAuthRetryInterval}
}

// BackOff returns a backoff.BackOff that reads its schedule from state:
// the first attempts retry immediately, later ones wait Interval, and
// retrying stops once MaxAttempts have been made.
func (p RetryPolicy) BackOff(state *RetryState) backoff.BackOff {
	return &retryBackOff{policy: p, state: state}
}

type retryBackOff struct {
	policy RetryPolicy
	state  *RetryState
}

func (b *retryBackOff) NextBackOff() time.Duration {
	if b.state.Attempts >= b.policy.MaxAttempts {
		return backoff.Stop
	}
	if b.state.Attempts < freeAttempts {
		return 0
	}
	return b.policy.Interval
}

// Reset is a no-op; the attempt counter belongs to the caller.
func (b *retryBackOff) Reset() {}

// CredentialResolver supplies the auth method for one attempt against url.
// A nil AuthMethod means "try anonymously".
type CredentialResolver interface {
	Credentials(ctx context.Context, url string, state *RetryState) (transport.AuthMethod, error)
}

// CredentialFunc adapts a function to CredentialResolver
type CredentialFunc func(ctx context.Context, url string, state *RetryState) (transport.AuthMethod, error)

// Credentials calls f
func (f CredentialFunc) Credentials(ctx context.Context, url string, state *RetryState) (transport.AuthMethod, error) {
	return f(ctx, url, state)
}

// RetryWithCredentials runs attempt until it succeeds, fails with a
// non-credential error, or the policy gives up. Each attempt increments
// state.Attempts and gets fresh credentials from creds. Sleeps between
// attempts are not interrupted by ctx.
func RetryWithCredentials(
	ctx context.Context,
	url string,
	creds CredentialResolver,
	policy RetryPolicy,
	state *RetryState,
	attempt func(auth transport.AuthMethod) error,
	notify func(err error, wait time.Duration),
) error {
	op := func() error {
		state.Attempts++
		auth, err := creds.Credentials(ctx, url, state)
		if err == nil {
			err = attempt(auth)
		}
		if err != nil && ClassifyFetchError(err) != FailureCredential {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, policy.BackOff(state), notify)
}

// DefaultCredentials resolves credentials the way git would: the SSH agent
// for SSH URLs, and for HTTPS an anonymous first attempt followed by a token
// from the environment or the configured git credential helper.
type DefaultCredentials struct {
	runner *CommandRunner
	tokens oauth2.TokenSource
}

// NewDefaultCredentials creates a resolver whose credential helper runs in dir.
func NewDefaultCredentials(dir string) *DefaultCredentials {
	c := &DefaultCredentials{runner: NewCommandRunner(dir)}
	for _, name := range tokenEnvVars {
		if token := os.Getenv(name); token != "" {
			c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			break
		}
	}
	return c
}

// WithTokenSource returns c using tokens for HTTPS authentication.
func (c *DefaultCredentials) WithTokenSource(tokens oauth2.TokenSource) *DefaultCredentials {
	c.tokens = tokens
	return c
}

// Credentials implements CredentialResolver
func (c *DefaultCredentials) Credentials(ctx context.Context, url string, state *RetryState) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}

	switch ep.Protocol {
	case "ssh":
		user := ep.User
		if user == "" {
			user = "git"
		}
		auth, err := gitssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, fmt.Errorf("%w: ssh agent: %w", ErrNoCredentials, err)
		}
		return auth, nil
	case "http", "https":
		if state.Attempts <= 1 && ep.Password == "" {
			return nil, nil
		}
		if ep.Password != "" {
			return &githttp.BasicAuth{Username: ep.User, Password: ep.Password}, nil
		}
		return c.httpCredentials(ctx, ep)
	default:
		return nil, nil
	}
}

func (c *DefaultCredentials) httpCredentials(ctx context.Context, ep *transport.Endpoint) (transport.AuthMethod, error) {
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err == nil && token.AccessToken != "" {
			user := ep.User
			if user == "" {
				user = "x-access-token"
			}
			return &githttp.BasicAuth{Username: user, Password: token.AccessToken}, nil
		}
	}
	return c.credentialHelper(ctx, ep)
}

// credentialHelper asks `git credential fill` for a username and password.
// The output is parsed in memory only and never logged.
func (c *DefaultCredentials) credentialHelper(ctx context.Context, ep *transport.Endpoint) (transport.AuthMethod, error) {
	var input strings.Builder
	fmt.Fprintf(&input, "protocol=%s\n", ep.Protocol)
	host := ep.Host
	if ep.Port != 0 {
		host = fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	}
	fmt.Fprintf(&input, "host=%s\n", host)
	if path := strings.TrimPrefix(ep.Path, "/"); path != "" {
		fmt.Fprintf(&input, "path=%s\n", path)
	}
	if ep.User != "" {
		fmt.Fprintf(&input, "username=%s\n", ep.User)
	}
	input.WriteString("\n")

	out, err := c.runner.RunWithInput(ctx, input.String(), "credential", "fill")
	if err != nil {
		return nil, fmt.Errorf("%w: credential helper failed", ErrNoCredentials)
	}

	auth := &githttp.BasicAuth{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "username":
			auth.Username = value
		case "password":
			auth.Password = value
		}
	}
	if auth.Password == "" {
		return nil, fmt.Errorf("%w: credential helper returned no password", ErrNoCredentials)
	}
	return auth, nil
}

// FailureClass groups fetch failures by the remediation they need
type FailureClass int

const (
	FailureUnknown FailureClass = iota
	FailureCredential
	FailureNetwork
)

func (c FailureClass) String() string {
	switch c {
	case FailureCredential:
		return "credential"
	case FailureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

var credentialMessages = []string{
	"unable to authenticate",
	"handshake failed",
	"authentication required",
	"authorization failed",
	"permission denied",
	"could not read username",
}

var networkMessages = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"connection reset",
	"no route to host",
}

// ClassifyFetchError decides whether a fetch failure was caused by
// credentials, by the network, or by something else.
func ClassifyFetchError(err error) FailureClass {
	if err == nil {
		return FailureUnknown
	}
	if errors.Is(err, ErrNoCredentials) ||
		errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) {
		return FailureCredential
	}

	msg := strings.ToLower(err.Error())
	for _, m := range credentialMessages {
		if strings.Contains(msg, m) {
			return FailureCredential
		}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return FailureNetwork
	}
	for _, m := range networkMessages {
		if strings.Contains(msg, m) {
			return FailureNetwork
		}
	}
	return FailureUnknown
}

// FetchHint returns remediation text for a failed fetch of url. The hint
// never includes credential material.
func FetchHint(class FailureClass, url string) string {
	ep, err := transport.NewEndpoint(url)
	protocol, host := "", url
	if err == nil {
		protocol, host = ep.Protocol, ep.Host
	}

	switch class {
	case FailureCredential:
		if protocol == "ssh" {
			addCmd := "ssh-add"
			if runtime.GOOS == "darwin" {
				addCmd = "ssh-add --apple-use-keychain"
			}
			return fmt.Sprintf("Check that your SSH agent is running and holds a key for %s: run `ssh-add -L` to list keys and `%s` to add one.", host, addCmd)
		}
		return fmt.Sprintf("Check your credentials for %s: configure a git credential helper or set %s.", host, strings.Join(tokenEnvVars, " or "))
	case FailureNetwork:
		return fmt.Sprintf("Check your network connection to %s.", host)
	default:
		return "Check that the remote URL is correct and reachable."
	}
}

const redacted = "xxxxx"

// RedactURL returns url with any embedded password replaced, suitable for
// logs and error messages.
func RedactURL(url string) string {
	password := urlPassword(url)
	if password == "" {
		return url
	}
	return strings.ReplaceAll(url, ":"+password+"@", ":"+redacted+"@")
}

// ScrubCredentials hides the password embedded in url wherever it appears in
// err's message. The returned error still unwraps to err.
func ScrubCredentials(err error, url string) error {
	password := urlPassword(url)
	if err == nil || password == "" {
		return err
	}
	msg := err.Error()
	scrubbed := strings.ReplaceAll(msg, password, redacted)
	if scrubbed == msg {
		return err
	}
	return &scrubbedError{err: err, msg: scrubbed}
}

func urlPassword(url string) string {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return ""
	}
	return ep.Password
}

type scrubbedError struct {
	err error
	msg string
}

func (e *scrubbedError) Error() string { return e.msg }

func (e *scrubbedError) Unwrap() error { return e.err }
