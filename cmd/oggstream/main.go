// Command oggstream encodes raw PCM to Ogg, decodes Ogg to raw PCM and
// inspects Ogg streams.
package main

import (
	"os"

	"github.com/thesyncim/oggstream/cmd/oggstream/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
