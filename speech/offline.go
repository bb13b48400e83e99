package speech

import (
	"context"
	"fmt"
	"time"
)

// OfflineProvider is the always-available transcription provider of last
// resort. It does not recognize speech: it returns a configured
// acknowledgment phrase so the toy can answer something friendly while
// every real recognizer is down. Degraded-mode behavior, registered at
// the lowest priority on purpose.
type OfflineProvider struct {
	cfg OfflineConfig
}

// NewOfflineProvider creates the offline acknowledgment provider.
func NewOfflineProvider(cfg OfflineConfig) *OfflineProvider {
	if cfg.Acknowledgment == "" {
		cfg.Acknowledgment = DefaultOfflineConfig().Acknowledgment
	}
	return &OfflineProvider{cfg: cfg}
}

func (p *OfflineProvider) Name() string { return "offline" }

// Execute returns the canned acknowledgment for any transcription
// request.
func (p *OfflineProvider) Execute(_ context.Context, req *Request) (*Result, error) {
	if req.Operation != OpTranscription {
		return nil, fmt.Errorf("offline: unsupported operation %q", req.Operation)
	}

	return &Result{
		Provider:  p.Name(),
		Operation: OpTranscription,
		Text:      p.cfg.Acknowledgment,
		CreatedAt: time.Now(),
	}, nil
}
