// Command sessiongate はセッションゲートのCLI。
package main

import (
	"os"

	"github.com/hitoshi/sessiongate/internal/app"
)

func main() {
	os.Exit(app.Main())
}
