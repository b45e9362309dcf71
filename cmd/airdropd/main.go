// Command airdropd serves the airdrop application to a host over gRPC
// and carries the key, signing and genesis tooling that goes with it.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
