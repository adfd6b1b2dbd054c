package main

import (
	"log"

	"github.com/sjzar/jrpc/cmd/jrpc"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	jrpc.Execute()
}
