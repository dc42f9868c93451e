package services

import "context"

// RunnableHub matches alertdispatch.Hub's Run method, letting this wrapper
// avoid importing internal/alertdispatch directly.
type RunnableHub interface {
	Run(ctx context.Context) error
}

// HubService runs a RunnableHub (the /ws/alerts broadcast hub) as a
// supervised service. Run already implements the suture.Service contract,
// so this wrapper only supplies the name suture logs it under.
type HubService struct {
	hub  RunnableHub
	name string
}

// NewHubService wraps hub for the messaging layer.
func NewHubService(hub RunnableHub) *HubService {
	return &HubService{hub: hub, name: "alert-stream-hub"}
}

func (s *HubService) Serve(ctx context.Context) error { return s.hub.Run(ctx) }

func (s *HubService) String() string { return s.name }
