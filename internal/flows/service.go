package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.SignIn.Verify != nil && s.deps.CurrentUser.Store != nil
}

func (s Service) SignIn(ctx context.Context, email, password string) SignInResult {
	return RunSignIn(ctx, email, password, s.deps.SignIn)
}

func (s Service) SignOut(ctx context.Context) {
	RunSignOut(ctx, s.deps.SignOut)
}

func (s Service) CurrentUser(ctx context.Context) CurrentUserResult {
	return RunCurrentUser(ctx, s.deps.CurrentUser)
}

// IsValidSession holds the profile shared; RunIsValidSession itself takes no
// lock so the other flows can call it while holding theirs.
func (s Service) IsValidSession(ctx context.Context, in ValidateInput) ValidateResult {
	rt := s.deps.Validate.Runtime.withDefaults()
	defer rt.RLockProfile(in.Profile)()
	return RunIsValidSession(ctx, in, s.deps.Validate)
}

func (s Service) VerifySession(ctx context.Context) VerifyResult {
	return RunVerifySession(ctx, s.deps.Verify)
}

func (s Service) Refresh(ctx context.Context, userID string) RefreshResult {
	return RunRefresh(ctx, userID, s.deps.Refresh)
}
