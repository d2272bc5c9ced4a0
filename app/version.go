package app

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/zlwaterfield/scramble/app.Version=1.4.0" ./cmd/scramble-gateway
var Version = "dev"
