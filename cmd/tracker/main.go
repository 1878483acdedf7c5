package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	_ "time/tzdata"
)

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		if !errors.Is(err, errAllFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
