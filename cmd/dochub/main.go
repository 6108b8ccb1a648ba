// The dochub command starts the document hub service.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/dochub/internal/dochub"
)

func main() {
	dochub.NewApp().Run()
}
