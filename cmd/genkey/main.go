// Command genkey prints a random secret suitable for JWT_SECRET.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to generate key:", err)
		os.Exit(1)
	}
	fmt.Println(hex.EncodeToString(key))
}
