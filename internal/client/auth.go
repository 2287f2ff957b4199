package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/abrezinsky/consensus/pkg/consensus"
)

// Screen is the top-level screen chosen by the session gate
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenMain
)

// Gate picks the sign-in screen when there is no session
func Gate(session *Session) Screen {
	if session == nil || session.AccessToken == "" {
		return ScreenAuth
	}
	return ScreenMain
}

// Step is the current step of the sign-in flow
type Step int

const (
	StepEmail Step = iota
	StepCode
)

func (s Step) String() string {
	if s == StepCode {
		return "code"
	}
	return "email"
}

// AuthFlow drives two-step email code sign-in
type AuthFlow struct {
	client   consensus.Client
	sessions *SessionStore

	step  Step
	email string
	code  string
}

// NewAuthFlow starts a flow at the email step
func NewAuthFlow(client consensus.Client, sessions *SessionStore) *AuthFlow {
	return &AuthFlow{client: client, sessions: sessions}
}

// Step returns the current step
func (f *AuthFlow) Step() Step { return f.step }

// Email returns the address the code was sent to
func (f *AuthFlow) Email() string { return f.email }

// Code returns the last code entered
func (f *AuthFlow) Code() string { return f.code }

// SendCode requests a code for email and moves to the code step. A blank
// email does nothing. On failure the flow stays on the email step.
func (f *AuthFlow) SendCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if err := f.client.RequestCode(ctx, email); err != nil {
		return err
	}
	f.email = email
	f.step = StepCode
	return nil
}

// Resend requests another code for the same address
func (f *AuthFlow) Resend(ctx context.Context) error {
	if f.step != StepCode {
		return nil
	}
	return f.client.RequestCode(ctx, f.email)
}

// Verify exchanges code for a session. A blank code does nothing. On
// failure the flow stays on the code step so the user can retry.
func (f *AuthFlow) Verify(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" || f.step != StepCode {
		return nil
	}
	f.code = code
	session, err := f.client.VerifyCode(ctx, f.email, code)
	if err != nil {
		return fmt.Errorf("invalid code, please check the code and try again: %w", err)
	}
	f.sessions.Set(NewSession(f.client.BaseURL(), f.email, session))
	return nil
}

// ChangeEmail returns to the email step and forgets the entered code
func (f *AuthFlow) ChangeEmail() {
	f.step = StepEmail
	f.code = ""
}
