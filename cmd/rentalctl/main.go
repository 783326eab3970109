package main

import (
	"context"
	"fmt"
	"os"

	"rentals/internal/cli/commands"
)

func main() {
	app := &commands.App{}
	root := commands.NewRootCmd(app)

	err := root.ExecuteContext(context.Background())
	app.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
