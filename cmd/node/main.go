// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/echa/log"
	"github.com/gagliardetto/solana-go"
	_ "github.com/joho/godotenv/autoload"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/rpc"
)

var (
	programId string
	port      string
	faucet    bool
	flags     = flag.NewFlagSet("node", flag.ContinueOnError)
)

func init() {
	flags.Usage = func() {}
	flags.StringVar(&programId, "program", envOr("CARBONPAY_PROGRAM_ID", carbonpay.DefaultProgramID.String()), "carbon credit program id")
	flags.StringVar(&port, "port", envOr("CARBONPAY_PORT", "8000"), "HTTP server port")
	flags.BoolVar(&faucet, "faucet", os.Getenv("CARBONPAY_FAUCET") != "", "enable lamport airdrops")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	err := flags.Parse(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Printf("Usage: %s [flags]\n", os.Args[0])
			fmt.Println("\nFlags")
			flags.PrintDefaults()
			return nil
		}
		return err
	}

	id, err := solana.PublicKeyFromBase58(programId)
	if err != nil {
		return fmt.Errorf("invalid program id %q: %v", programId, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}

	store := ledger.NewStore()
	prog := carbonpay.New(store, id)
	log.Infof("Carbon credit program %s registry %s", prog.ID(), prog.RegistryAddress())
	if faucet {
		log.Warnf("Faucet enabled, anyone can airdrop lamports")
	}

	// use default http server
	log.Infof("Listening on :%s", port)
	http.Handle("/", rpc.NewServer(store, prog, faucet))
	return http.ListenAndServe(":"+port, nil)
}
