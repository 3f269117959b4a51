package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cctx := newCommandContext()
	cmd := newRootCommand(cctx)
	err := cmd.ExecuteContext(context.Background())
	cctx.close(context.Background())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
