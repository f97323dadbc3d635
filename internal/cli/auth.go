package cli

import (
	"context"
	"fmt"

	"github.com/IsnuMdr/todo-app/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for an email and password. An unknown email registers a new
// account; a known one must match its secret.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	secret := string(password)
	common.WipeByteArray(password)

	res, err := a.sessions.LoginOrRegister(ctx, email, secret)
	if err != nil {
		return err
	}

	if res.IsNewIdentity {
		fmt.Fprintf(a.out, "Account created for %s\n", res.Identity.Email)
	} else {
		fmt.Fprintf(a.out, "Welcome back, %s\n", res.Identity.Email)
	}
	return nil
}

// GoogleLogin starts the browser sign-in and returns without waiting for it.
func (a *App) GoogleLogin(ctx context.Context) error {
	if err := a.sessions.LoginWithExternalProvider(ctx, ""); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Continue in your browser; you will be signed in once Google redirects back.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.sessions.CurrentIdentity(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s, id %s)\n", id.Email, id.Kind, id.ID)
	if id.External != nil && id.External.Name != "" {
		fmt.Fprintf(a.out, "Name: %s\n", id.External.Name)
	}
	return nil
}
