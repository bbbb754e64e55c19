// Package gallery curates attachment posts into per-author forum threads.
//
// A trigger reaction on a message routes it into the author's collection
// thread, creating the thread on first use. The bot's own processed-marker
// reaction on the source message is the only deduplication state: no set of
// handled message ids is kept anywhere.
package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
	"github.com/dmitrijs2005/atelier/internal/store"
)

// Index is the persisted author-id → thread-id mapping. Data files written
// by earlier deployments carry thread ids as JSON numbers; both forms load,
// normalized to the decimal string. Ids are snowflakes past float64
// precision, so decoding goes through json.Number.
type Index map[string]string

func (ix *Index) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	m := make(Index, len(raw))
	for author, id := range raw {
		switch v := id.(type) {
		case string:
			m[author] = v
		case json.Number:
			m[author] = v.String()
		default:
			return fmt.Errorf("thread id for author %s is a %T, want string or number", author, id)
		}
	}
	*ix = m
	return nil
}

type Service struct {
	store   *store.Store
	file    string
	msgs    platform.Messenger
	dir     platform.Directory
	threads platform.ThreadCreator
	logger  logging.Logger

	galleryName    string
	triggerEmoji   string
	processedEmoji string
}

func NewService(
	st *store.Store,
	file string,
	msgs platform.Messenger,
	dir platform.Directory,
	threads platform.ThreadCreator,
	galleryName, triggerEmoji, processedEmoji string,
	logger logging.Logger,
) *Service {
	return &Service{
		store:          st,
		file:           file,
		msgs:           msgs,
		dir:            dir,
		threads:        threads,
		galleryName:    galleryName,
		triggerEmoji:   triggerEmoji,
		processedEmoji: processedEmoji,
		logger:         logger.With("module", "gallery"),
	}
}

// HandleReaction runs the curation state machine for one reaction-added
// event. Everything but a trigger-emoji reaction on an unprocessed,
// attachment-bearing, human-authored message is a no-op.
//
// Ordering is post-then-mark: the curated post is made first and the
// processed marker attached after. A failed post leaves the message
// eligible for a later trigger; a failed marker after a successful post can
// produce one visible duplicate on retry, which is accepted and logged.
func (s *Service) HandleReaction(ctx context.Context, ev platform.ReactionEvent) error {
	if ev.Emoji != s.triggerEmoji {
		return nil
	}

	msg, err := s.dir.Message(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return fmt.Errorf("fetch message %s: %w", ev.MessageID, err)
	}

	if len(msg.Attachments) == 0 || msg.Author.Bot {
		return nil
	}

	if msg.HasOwnReaction(s.processedEmoji) {
		s.logger.Debug(ctx, "message already curated", "message", msg.ID)
		return nil
	}

	forum, err := s.dir.ChannelByName(ctx, ev.GuildID, s.galleryName)
	if err != nil {
		return fmt.Errorf("resolve gallery channel %q: %w", s.galleryName, err)
	}
	if forum.Kind != platform.ChannelForum {
		return fmt.Errorf("channel %q is a %s channel, not a forum", s.galleryName, forum.Kind)
	}

	threadID, err := s.resolveThread(ctx, forum.ID, msg.Author)
	if err != nil {
		return err
	}

	if err := s.msgs.SendEmbed(ctx, threadID, BuildEmbed(msg)); err != nil {
		return fmt.Errorf("post to thread %s: %w", threadID, err)
	}

	// Commit point. If this fails the post stands but the message stays
	// unmarked, so a later trigger may duplicate it.
	if err := s.msgs.AddReaction(ctx, msg.ChannelID, msg.ID, s.processedEmoji); err != nil {
		s.logger.Warn(ctx, "curated post made but marker failed, duplicate possible",
			"message", msg.ID, "thread", threadID, "error", err)
		return nil
	}

	s.logger.Info(ctx, "message curated", "message", msg.ID, "author", msg.Author.ID, "thread", threadID)
	return nil
}

// resolveThread returns the author's collection thread id, creating the
// thread and updating the index when there is none, or when the indexed
// thread no longer resolves (deleted externally; the stale entry
// self-heals).
func (s *Service) resolveThread(ctx context.Context, forumID string, author platform.Author) (string, error) {
	idx, err := store.Load[Index](ctx, s.store, s.file)
	if err != nil {
		return "", fmt.Errorf("load thread index: %w", err)
	}
	if idx == nil {
		idx = Index{}
	}

	if threadID, ok := idx[author.ID]; ok {
		_, err := s.dir.Channel(ctx, threadID)
		if err == nil {
			return threadID, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("resolve thread %s: %w", threadID, err)
		}
		s.logger.Info(ctx, "indexed thread is gone, recreating", "author", author.ID, "thread", threadID)
	}

	thread, err := s.threads.CreateThread(ctx, forumID,
		fmt.Sprintf("%s's portfolio", author.DisplayName),
		fmt.Sprintf("Welcome to %s's portfolio! Works that earn a %s end up here.", author.Mention(), s.triggerEmoji),
	)
	if err != nil {
		return "", fmt.Errorf("create thread for %s: %w", author.ID, err)
	}

	// Persisted before the mapping is relied on again, so a restart cannot
	// create a second thread for the same author.
	idx[author.ID] = thread.ID
	if err := s.store.Save(ctx, s.file, idx); err != nil {
		return "", fmt.Errorf("save thread index: %w", err)
	}

	s.logger.Info(ctx, "created portfolio thread", "author", author.ID, "thread", thread.ID)
	return thread.ID, nil
}
