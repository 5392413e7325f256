// Command hash-generator prints a bcrypt hash for a password given on the
// command line. Useful for seeding users directly in SQL during local
// development.
package main

import (
	"fmt"
	"os"

	"github.com/kwren/taskhive-api/internal/service/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <password>\n", os.Args[0])
		os.Exit(1)
	}

	hash, err := auth.NewBcryptHasher().Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
