package cli

import (
	"context"
	"fmt"

	"github.com/medkeep/medkeep/internal/client/models"
)

func (a *App) login(ctx context.Context) {
	email := a.readString("Email: ")
	password := a.readPassword("Password: ")

	session, err := a.remote.SignIn(ctx, email, password)
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}

	a.setScope(models.UserScope(session.UserID))
	fmt.Println("Logged in.")

	err = a.serialize(func(scope models.Scope) error {
		return a.sync.FullSync(ctx, scope)
	})
	if err != nil {
		fmt.Println("Initial sync failed:", err)
	}
}

func (a *App) logout(ctx context.Context) {
	if !a.activeScope().IsUser() {
		fmt.Println("Not logged in.")
		return
	}
	if err := a.remote.SignOut(ctx); err != nil {
		a.log.Warn(ctx, "sign out failed", "error", err)
	}
	a.setScope(models.GuestScope())
	fmt.Println("Logged out.")
}
