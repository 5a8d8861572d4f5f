package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// keygen prints an account for use as a treasury, pool or test owner. With
// NFTSTAKE_PK set it derives the address of that key instead.
func main() {
	role := flag.String("role", "treasury", "config field the address is for: vault|treasury|token_pool|shares_pool|levels_pool")
	flag.Parse()

	pk := strings.TrimPrefix(strings.TrimSpace(os.Getenv("NFTSTAKE_PK")), "0x")
	priv, err := crypto.GenerateKey()
	if pk != "" {
		priv, err = crypto.HexToECDSA(pk)
	}
	if err != nil {
		log.Fatalf("private key: %v", err)
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)

	fmt.Println("=== account ===")
	fmt.Println()
	fmt.Printf("addresses:\n  %s: \"%s\"\n", *role, addr.Hex())
	if pk == "" {
		fmt.Printf("\nexport NFTSTAKE_PK=\"%s\"\n", hex.EncodeToString(crypto.FromECDSA(priv)))
	}
	fmt.Println()
	fmt.Println("Paste the addresses block into config.yaml, then run: ./stakingd -config config.yaml")
}
