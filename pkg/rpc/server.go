// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/echa/log"
	"github.com/gorilla/schema"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/metadata"
	"blockwatch.cc/carbonpay/pkg/token"
)

// Server exposes a ledger and the carbonpay program over HTTP.
type Server struct {
	store   *ledger.Store
	prog    *carbonpay.Program
	faucet  bool
	decoder *schema.Decoder
	mux     *http.ServeMux
}

func NewServer(store *ledger.Store, prog *carbonpay.Program, faucet bool) *Server {
	s := &Server{
		store:   store,
		prog:    prog,
		faucet:  faucet,
		decoder: schema.NewDecoder(),
		mux:     http.NewServeMux(),
	}
	s.decoder.IgnoreUnknownKeys(true)
	s.mux.HandleFunc("/tx", s.post(s.handleTx))
	s.mux.HandleFunc("/airdrop", s.post(s.handleAirdrop))
	s.mux.HandleFunc("/registry", s.get(s.handleRegistry))
	s.mux.HandleFunc("/project", s.get(s.handleProject))
	s.mux.HandleFunc("/purchase", s.get(s.handlePurchase))
	s.mux.HandleFunc("/offset", s.get(s.handleOffset))
	s.mux.HandleFunc("/balance", s.get(s.handleBalance))
	s.mux.HandleFunc("/token", s.get(s.handleToken))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type handlerFunc func(r *http.Request) (interface{}, error)

// maxBody bounds request bodies. The largest is a JSON transaction, a base64
// message of at most ledger.MaxMessageSize bytes plus its signatures.
const maxBody = 16 << 10

// httpError carries a status code for failures outside the program.
type httpError struct {
	status int
	err    error
}

func (e httpError) Error() string { return e.err.Error() }
func (e httpError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return httpError{http.StatusBadRequest, err}
}

func (s *Server) post(fn handlerFunc) http.HandlerFunc {
	return s.handle(http.MethodPost, fn)
}

func (s *Server) get(fn handlerFunc) http.HandlerFunc {
	return s.handle(http.MethodGet, fn)
}

func (s *Server) handle(method string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// check method
		if r.Method != method {
			http.Error(w, "invalid method", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		res, err := fn(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		http.Error(w, fmt.Sprintf("marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Date", time.Now().Format(http.TimeFormat))
	w.WriteHeader(status)
	w.Write(buf)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	var (
		herr  httpError
		rerr  *receiptError
		code  carbonpay.ErrorCode
		found bool
	)
	if errors.As(err, &rerr) {
		resp.Receipt = rerr.receipt
	}
	if code, found = carbonpay.ErrorCodeOf(err); found {
		resp.Code = code.Code()
		resp.Name = code.Name()
		status = http.StatusUnprocessableEntity
	}
	switch {
	case errors.As(err, &herr):
		status = herr.status
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidSignature),
		errors.Is(err, ledger.ErrMissingSignature),
		errors.Is(err, ledger.ErrEmptyMessage),
		errors.Is(err, ledger.ErrUnknownProgram):
		status = http.StatusBadRequest
	case found && code == carbonpay.ErrNotInitialized:
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		log.Error(err)
	} else {
		log.Debugf("request failed: %v", err)
	}
	writeJSON(w, status, resp)
}

// receiptError keeps the receipt of a failed transaction.
type receiptError struct {
	receipt *ledger.Receipt
	err     error
}

func (e *receiptError) Error() string { return e.err.Error() }
func (e *receiptError) Unwrap() error { return e.err }

func (s *Server) decode(r *http.Request, dst interface{}) error {
	if err := s.decoder.Decode(dst, r.URL.Query()); err != nil {
		return badRequest(err)
	}
	return nil
}

func (s *Server) handleTx(r *http.Request) (interface{}, error) {
	var stx SignedTransaction
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&stx); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httpError{http.StatusRequestEntityTooLarge, err}
		}
		return nil, badRequest(err)
	}
	r.Body.Close()

	tx, err := stx.Decode()
	if err != nil {
		return nil, badRequest(fmt.Errorf("invalid message: %w", err))
	}
	receipt, err := s.store.Submit(r.Context(), tx)
	if err != nil {
		if receipt != nil {
			return nil, &receiptError{receipt: receipt, err: err}
		}
		return nil, err
	}
	log.Infof("Executed tx %s in slot %d receipt %s", receipt.Signature, receipt.Slot, receipt.ID)
	return receipt, nil
}

func (s *Server) handleAirdrop(r *http.Request) (interface{}, error) {
	if !s.faucet {
		return nil, httpError{http.StatusForbidden, errors.New("faucet disabled")}
	}
	var q airdropQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	if err := s.store.Airdrop(q.Address, chain.Lamports(q.Lamports)); err != nil {
		return nil, badRequest(err)
	}
	log.Infof("Airdropped %s SOL to %s", SOL(chain.Lamports(q.Lamports)), q.Address)
	return s.balance(q.Address), nil
}

func (s *Server) handleRegistry(r *http.Request) (interface{}, error) {
	reg, err := s.prog.Registry()
	if err != nil {
		return nil, err
	}
	return RegistryInfo{Address: s.prog.RegistryAddress(), Registry: reg}, nil
}

func (s *Server) handleProject(r *http.Request) (interface{}, error) {
	var q projectQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	addr, prj, err := s.prog.FindProject(q.Owner, q.Certificate)
	if err != nil {
		return nil, err
	}
	return ProjectInfo{Address: addr, Project: prj}, nil
}

func (s *Server) handlePurchase(r *http.Request) (interface{}, error) {
	var q purchaseQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	addr, pur, err := s.prog.FindPurchase(q.Buyer, q.Project, q.Certificate)
	if err != nil {
		return nil, err
	}
	return PurchaseInfo{Address: addr, Purchase: pur}, nil
}

func (s *Server) handleOffset(r *http.Request) (interface{}, error) {
	var q offsetQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	addr, req, err := s.prog.FindOffsetRequest(q.Requester, q.Purchase, q.RequestID)
	if err != nil {
		return nil, err
	}
	return OffsetRequestInfo{Address: addr, OffsetRequest: req}, nil
}

func (s *Server) handleBalance(r *http.Request) (interface{}, error) {
	var q addressQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	return s.balance(q.Address), nil
}

func (s *Server) balance(addr chain.Pubkey) BalanceInfo {
	l := s.store.Balance(addr)
	return BalanceInfo{Address: addr, Lamports: l, SOL: SOL(l)}
}

func (s *Server) handleToken(r *http.Request) (interface{}, error) {
	var q addressQuery
	if err := s.decode(r, &q); err != nil {
		return nil, err
	}
	info := TokenInfo{Address: q.Address}
	if m, err := token.ReadMint(s.store, q.Address); err == nil {
		info.Mint = &m
		if md, err := metadata.Read(s.store, q.Address); err == nil {
			info.Metadata = &md
		}
		return info, nil
	}
	acc, err := token.ReadAccount(s.store, q.Address)
	if err != nil {
		return nil, httpError{http.StatusNotFound, err}
	}
	info.Account = &acc
	return info, nil
}
