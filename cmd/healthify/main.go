package main

import "github.com/aussiebroadwan/healthify/cmd/healthify/cmd"

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.6 init --dir ../../internal/healthify/http --generalInfo router.go --output ../../api/healthify --outputTypes go --parseDependency --parseInternal

func main() {
	cmd.Execute()
}
