package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Hash a delivery code for seeding the delivery_otps table in dev.
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <otp>")
	}

	code := os.Args[1]

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash code: %v", err)
	}

	fmt.Println(string(hash))
}
