package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) repl(ctx context.Context) {
	fmt.Println("medkeep (type 'help' for commands)")

	for {
		line := a.readString(fmt.Sprintf("medkeep [%s] > ", a.activeScope().Key()))
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Commands: login, logout, add, list, del, today, take, skip, sync, status, exit")
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "add":
			a.addMedication(ctx)
		case "list":
			a.listMedications(ctx)
		case "del":
			a.deleteMedication(ctx, args)
		case "today":
			a.today(ctx)
		case "take":
			a.logDose(ctx, args, false)
		case "skip":
			a.logDose(ctx, args, true)
		case "sync":
			a.runSync(ctx)
		case "status":
			a.syncStatus()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
