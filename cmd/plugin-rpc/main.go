// Command plugin-rpc serves the same handle_request entry point as the shared
// library, but as a separate process driven over go-plugin net/rpc. The
// development host launches it when running in rpc mode.
package main

import (
	"github.com/imposter-project/imposter-dylib/internal/handler"
	"github.com/imposter-project/imposter-dylib/internal/router"
	"github.com/imposter-project/imposter-dylib/internal/rpcplugin"
)

func main() {
	rpcplugin.Serve(handler.New(router.NewDefault()))
}
