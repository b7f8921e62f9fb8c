package gateways

import (
	"context"
	"errors"
	"sync"

	"github.com/shelfmark/shelfmark/reservation/protocols"
)

type admissionState struct {
	status string
	result *protocols.AdmissionResult
}

type IdempotencyGatewayMemory struct {
	mu   sync.Mutex
	keys map[string]*admissionState
}

func NewIdempotencyGatewayMemory() *IdempotencyGatewayMemory {
	return &IdempotencyGatewayMemory{keys: make(map[string]*admissionState)}
}

func (g *IdempotencyGatewayMemory) Reserve(ctx context.Context, key string) (*protocols.AdmissionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, exists := g.keys[key]
	if exists {
		if state.status == "success" {
			return state.result, nil
		}
		if state.status == "processing" {
			return nil, errors.New("idempotency key is already being processed")
		}
		delete(g.keys, key)
	}
	g.keys[key] = &admissionState{status: "processing"}
	return nil, nil
}

func (g *IdempotencyGatewayMemory) MarkSuccess(ctx context.Context, key string, result *protocols.AdmissionResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if state, exists := g.keys[key]; exists {
		state.status = "success"
		state.result = result
	}
	return nil
}

func (g *IdempotencyGatewayMemory) MarkFailure(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}
