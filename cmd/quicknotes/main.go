// Quicknotes: a note-taking assistant that understands plain language.
//
// Usage:
//
//	quicknotes serve    # HTTP API (notes CRUD + /assistant)
//	quicknotes chat     # interactive session on the terminal
//	quicknotes mcp      # MCP server (stdio transport)
//	quicknotes token    # sign a bearer token for a user
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	Execute()
}
