// Command gensecrets prints fresh token secrets in .env format.
package main

import (
	"fmt"
	"os"

	"github.com/SscSPs/blog_backend/internal/utils"
)

const secretBytes = 64

func main() {
	access, refresh, err := utils.GenerateTokenSecrets(secretBytes)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate secrets:", err)
		os.Exit(1)
	}

	fmt.Println("# Add these to your .env file. Never commit them.")
	fmt.Printf("JWT_SECRET=%s\n", access)
	fmt.Printf("REFRESH_TOKEN_SECRET=%s\n", refresh)
}
