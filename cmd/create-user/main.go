package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/utils"
)

const defaultStorageLimit = 50 * 1024 * 1024

func main() {
	var (
		dbPath       string
		username     string
		email        string
		password     string
		storageLimit int64
		sessionDays  int
	)

	flag.StringVar(&dbPath, "db", "./screendrop.db", "Path to screendrop database")
	flag.StringVar(&username, "username", "", "Username for the new account (required)")
	flag.StringVar(&email, "email", "", "Email for the new account (required)")
	flag.StringVar(&password, "password", "", "Password for the new account (required)")
	flag.Int64Var(&storageLimit, "storage-limit", defaultStorageLimit, "Storage limit in bytes")
	flag.IntVar(&sessionDays, "session-days", 0, "Also mint a session token valid for this many days (0 = none)")
	flag.Parse()

	if username == "" || email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "Error: -username, -email and -password are required")
		flag.Usage()
		os.Exit(1)
	}

	db, err := database.Initialize(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user, err := database.CreateUser(db, username, email, hash, storageLimit)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Created user %q (id %d) with a %s storage limit\n",
		user.Username, user.ID, utils.FormatFileSize(user.StorageLimit))

	if sessionDays > 0 {
		token, err := newSessionToken()
		if err != nil {
			log.Fatalf("Failed to generate session token: %v", err)
		}

		expiresAt := time.Now().UTC().Add(time.Duration(sessionDays) * 24 * time.Hour)
		if err := database.CreateSession(db, user.ID, token, expiresAt); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}

		// The token is only recoverable here; the database stores its hash.
		fmt.Printf("Session token (valid until %s): %s\n",
			expiresAt.Format("2006-01-02"), token)
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
