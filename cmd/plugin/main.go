// Command plugin is the shared library a host loads to service requests.
//
// Build with:
//
//	go build -buildmode=c-shared -o plugin.so ./cmd/plugin
//
// The library exports a single symbol, handle_request(int64_t). The host
// passes only a request id; the plugin fetches the request from
// $HOST/admin/get-request-info and pushes its response to
// $HOST/admin/push-response-info.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"github.com/imposter-project/imposter-dylib/internal/handler"
	"github.com/imposter-project/imposter-dylib/internal/router"
	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

//export handle_request
func handle_request(requestID C.int64_t) {
	handler.New(router.NewDefault()).HandleRequest(abi.RequestID(requestID))
}

// main is required by -buildmode=c-shared but never runs.
func main() {}
