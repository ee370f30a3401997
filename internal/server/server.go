// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations
// (session store, cache, remote client, embedding client, engine) and
// injects them into the tools that depend on them. No business logic
// lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"tendril/internal/cache"
	"tendril/internal/config"
	"tendril/internal/embedding"
	"tendril/internal/engine"
	"tendril/internal/prompts"
	"tendril/internal/remote"
	"tendril/internal/resources"
	"tendril/internal/sessions"
	"tendril/internal/threadtools"

	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all thread tools
// registered. The returned cleanup function drains in-flight background
// syncs and closes the session database; it must be called on shutdown
// (typically via defer) and is always non-nil.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	// --- Shared dependencies ---

	sessionStore, err := sessions.New(sessions.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("creating session store: %w", err)
	}

	var remoteStore engine.RemoteSource
	if cfg.Remote.URL != "" {
		remoteStore = remote.New(
			cfg.Remote.URL,
			cfg.Remote.Token,
			time.Duration(cfg.Remote.TimeoutSeconds)*time.Second,
		)
	} else {
		log.Printf("no remote store configured; serving from session records and cache")
	}

	var embedder embedding.Provider
	if cfg.Embedding.URL != "" {
		embedder = embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	}

	eng, err := engine.New(engine.Options{
		Remote:       remoteStore,
		Sessions:     sessionStore,
		Recorder:     sessionStore,
		Cache:        cache.New(filepath.Join(cfg.DataDir, "threads.json")),
		Embedder:     embedder,
		HalfLives:    cfg.HalfLifeDays,
		SessionDepth: cfg.SessionFetchDepth,
	})
	if err != nil {
		_ = sessionStore.Close()
		return nil, noop, fmt.Errorf("creating engine: %w", err)
	}

	cleanup := func() {
		eng.Close()
		if err := sessionStore.Close(); err != nil {
			log.Printf("WARNING: session store close: %v", err)
		}
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"tendril",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register thread tools ---

	createTool := threadtools.NewCreateTool(eng)
	s.AddTool(createTool.Definition(), createTool.Handle)

	listTool := threadtools.NewListTool(eng)
	s.AddTool(listTool.Definition(), listTool.Handle)

	resolveTool := threadtools.NewResolveTool(eng)
	s.AddTool(resolveTool.Definition(), resolveTool.Handle)

	cleanupTool := threadtools.NewCleanupTool(eng)
	s.AddTool(cleanupTool.Definition(), cleanupTool.Handle)

	sessionCloseTool := threadtools.NewSessionCloseTool(eng)
	s.AddTool(sessionCloseTool.Definition(), sessionCloseTool.Handle)

	// --- Register prompts ---

	pickupPrompt := prompts.NewPickupPrompt()
	s.AddPrompt(pickupPrompt.Definition(), pickupPrompt.Handle)

	wrapupPrompt := prompts.NewWrapupPrompt()
	s.AddPrompt(wrapupPrompt.Definition(), wrapupPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(eng)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is the default cleanup when initialization fails early.
func noop() {}

// serverInstructions tells the AI client how to use tendril across a
// session.
func serverInstructions() string {
	return `You have access to tendril, an institutional-memory server for
open work items ("threads") that survive across coding sessions.

## When to track a thread
Call thread_create whenever work is identified but not finished in the
current session: a bug you noticed but didn't fix, a follow-up the user
asked for, a refactor you deferred. Don't track work you completed
immediately.

Duplicate detection runs on every create: if the same item is already
tracked, the existing thread is touched (its activity bumped) instead of
creating a second copy. Touching is the right outcome — it signals the
item is still relevant.

## Session protocol
1. At session start, call thread_list to recover open items from
   previous sessions. Mention relevant ones to the user.
2. When you finish a tracked item, call thread_resolve with a short
   resolution_note saying how it was closed out.
3. At session end, call thread_session_close with your session_id.
   This snapshots the open set so future sessions can recover it even
   if the remote store is unreachable.

## Hygiene
Periodically (or when the user asks "what's outstanding?"), call
thread_cleanup to triage open threads by lifecycle state:
- emerging: created in the last 24h
- active: recently touched, high vitality
- cooling: fading, worth a look
- dormant: untouched for a long time

With auto_archive=true, threads dormant for 30+ days are archived in
bulk. Suggest this when the dormant bucket grows large.

## Rules
- Resolving is idempotent and precise: only the single matched thread
  changes, never others mentioned in a resolution note.
- A failed remote write never loses data — every mutation also lands
  in the local cache and syncs later.
- Thread text should be a self-contained, searchable sentence
  ("Fix token refresh race in auth middleware"), not a fragment.`
}
