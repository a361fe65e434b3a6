package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/common"
)

// Register prompts for the account fields and creates the account. It
// does not sign in; the user is pointed at login instead.
func (a *App) Register(ctx context.Context) error {
	var reg models.Registration
	prompts := []struct {
		label string
		dst   *string
	}{
		{"Enter first name", &reg.FirstName},
		{"Enter last name", &reg.LastName},
		{"Enter phone", &reg.Phone},
		{"Enter email", &reg.Email},
	}
	for _, p := range prompts {
		v, err := GetSimpleText(a.reader, p.label, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := a.readSecret("Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	reg.Password, reg.ConfirmPassword = string(password), string(confirm)

	res, err := a.session.Register(ctx, reg)
	if err != nil {
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = "Account created."
	}
	fmt.Fprintf(a.out, "%s You can log in now.\n", msg)
	return nil
}

// Login prompts for credentials, signs in and loads the owned list.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintf(a.out, "Already logged in as %s. Log out first.\n", a.userLabel())
		return nil
	}

	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, email, string(password)); err != nil {
		return err
	}

	a.startCollection(nil)
	fmt.Fprintf(a.out, "Logged in as %s.\n", a.userLabel())
	if err := a.collection.LoadActiveList(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

// Logout ends the session and forgets the stored token.
func (a *App) Logout(ctx context.Context) error {
	a.stopCollection()
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
