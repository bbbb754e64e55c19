package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/platform"
	"github.com/dmitrijs2005/atelier/internal/store"
)

type fakeMessenger struct {
	sendEmbedErr   error
	addReactionErr error

	embeds    map[string][]*platform.Embed // channelID -> posts
	reactions []string                     // channelID/messageID/emoji
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{embeds: map[string][]*platform.Embed{}}
}

func (f *fakeMessenger) SendMessage(ctx context.Context, channelID, content string) error {
	return nil
}

func (f *fakeMessenger) SendEmbed(ctx context.Context, channelID string, e *platform.Embed) error {
	if f.sendEmbedErr != nil {
		return f.sendEmbedErr
	}
	f.embeds[channelID] = append(f.embeds[channelID], e)
	return nil
}

func (f *fakeMessenger) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if f.addReactionErr != nil {
		return f.addReactionErr
	}
	f.reactions = append(f.reactions, channelID+"/"+messageID+"/"+emoji)
	return nil
}

type fakeDirectory struct {
	messages map[string]*platform.Message // messageID
	channels map[string]*platform.Channel // channelID
	byName   map[string]*platform.Channel // name
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		messages: map[string]*platform.Message{},
		channels: map[string]*platform.Channel{},
		byName:   map[string]*platform.Channel{},
	}
}

func (f *fakeDirectory) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, common.ErrNotFound)
	}
	return ch, nil
}

func (f *fakeDirectory) ChannelByName(ctx context.Context, guildID, name string) (*platform.Channel, error) {
	ch, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("channel %q: %w", name, common.ErrNotFound)
	}
	return ch, nil
}

func (f *fakeDirectory) Message(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	m, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, common.ErrNotFound)
	}
	return m, nil
}

func (f *fakeDirectory) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	return nil, common.ErrNotFound
}

func (f *fakeDirectory) Members(ctx context.Context, guildID string) ([]*platform.Member, error) {
	return nil, nil
}

func (f *fakeDirectory) RoleByName(ctx context.Context, guildID, name string) (*platform.Role, error) {
	return nil, common.ErrNotFound
}

func (f *fakeDirectory) IsAdmin(ctx context.Context, channelID, userID string) (bool, error) {
	return false, nil
}

type fakeThreadCreator struct {
	createErr error
	created   int
	nextID    int
}

func (f *fakeThreadCreator) CreateThread(ctx context.Context, forumID, title, content string) (*platform.Channel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	f.nextID++
	return &platform.Channel{ID: fmt.Sprintf("thread-%d", f.nextID), Name: title, Kind: platform.ChannelThread}, nil
}

type fixture struct {
	svc     *Service
	store   *store.Store
	dataDir string
	msgs    *fakeMessenger
	dir     *fakeDirectory
	threads *fakeThreadCreator
	logger  logging.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	dataDir := t.TempDir()
	st := store.New(dataDir, logger)
	msgs := newFakeMessenger()
	dir := newFakeDirectory()
	threads := &fakeThreadCreator{}

	dir.byName["gallery"] = &platform.Channel{ID: "forum-1", Name: "gallery", Kind: platform.ChannelForum}

	return &fixture{
		svc:     NewService(st, "author_threads.json", msgs, dir, threads, "gallery", "👍", "✅", logger),
		store:   st,
		dataDir: dataDir,
		msgs:    msgs,
		dir:     dir,
		threads: threads,
		logger:  logger,
	}
}

func artMessage(id, authorID string) *platform.Message {
	return &platform.Message{
		ID:        id,
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		Author:    platform.Author{ID: authorID, Name: "maya", DisplayName: "Maya"},
		Attachments: []platform.Attachment{
			{URL: "https://cdn.example/art.png", Filename: "art.png"},
		},
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func trigger(messageID string) platform.ReactionEvent {
	return platform.ReactionEvent{
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		MessageID: messageID,
		UserID:    "someone",
		Emoji:     "👍",
	}
}

func TestHandleReaction_IgnoresOtherEmoji(t *testing.T) {
	f := newFixture(t)

	ev := trigger("m1")
	ev.Emoji = "🎉"
	require.NoError(t, f.svc.HandleReaction(context.Background(), ev))
	assert.Zero(t, f.threads.created)
	assert.Empty(t, f.msgs.embeds)
}

func TestHandleReaction_IgnoresMessagesWithoutAttachments(t *testing.T) {
	f := newFixture(t)
	m := artMessage("m1", "42")
	m.Attachments = nil
	f.dir.messages["m1"] = m

	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))
	assert.Empty(t, f.msgs.embeds)
}

func TestHandleReaction_IgnoresBotAuthors(t *testing.T) {
	f := newFixture(t)
	m := artMessage("m1", "42")
	m.Author.Bot = true
	f.dir.messages["m1"] = m

	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))
	assert.Empty(t, f.msgs.embeds)
}

func TestHandleReaction_CuratesAndMarks(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")

	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))

	require.Equal(t, 1, f.threads.created)
	require.Len(t, f.msgs.embeds["thread-1"], 1)
	assert.Equal(t, "https://cdn.example/art.png", f.msgs.embeds["thread-1"][0].ImageURL)
	assert.Equal(t, []string{"chan-1/m1/✅"}, f.msgs.reactions)

	idx, err := store.Load[Index](context.Background(), f.store, "author_threads.json")
	require.NoError(t, err)
	assert.Equal(t, Index{"42": "thread-1"}, idx)
}

func TestHandleReaction_ProcessedMarkerMakesItIdempotent(t *testing.T) {
	f := newFixture(t)
	m := artMessage("m1", "42")
	m.Reactions = []platform.Reaction{{Emoji: "✅", Mine: true}}
	f.dir.messages["m1"] = m

	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))

	assert.Zero(t, f.threads.created)
	assert.Empty(t, f.msgs.embeds)
	assert.Empty(t, f.msgs.reactions, "no second marker on an already marked message")
}

func TestHandleReaction_SomeoneElsesMarkerDoesNotCount(t *testing.T) {
	f := newFixture(t)
	m := artMessage("m1", "42")
	m.Reactions = []platform.Reaction{{Emoji: "✅", Mine: false}}
	f.dir.messages["m1"] = m

	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))
	assert.Equal(t, 1, f.threads.created)
}

func TestHandleReaction_SameAuthorRoutesToSameThread(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.dir.messages["m2"] = artMessage("m2", "42")
	ctx := context.Background()

	require.NoError(t, f.svc.HandleReaction(ctx, trigger("m1")))
	// The indexed thread must resolve for reuse.
	f.dir.channels["thread-1"] = &platform.Channel{ID: "thread-1", Kind: platform.ChannelThread}

	require.NoError(t, f.svc.HandleReaction(ctx, trigger("m2")))

	assert.Equal(t, 1, f.threads.created, "one thread per author")
	assert.Len(t, f.msgs.embeds["thread-1"], 2)
}

func TestHandleReaction_ThreadMappingSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.dir.messages["m2"] = artMessage("m2", "42")
	ctx := context.Background()

	require.NoError(t, f.svc.HandleReaction(ctx, trigger("m1")))
	f.dir.channels["thread-1"] = &platform.Channel{ID: "thread-1", Kind: platform.ChannelThread}

	// A fresh service over the same store simulates a restart.
	restarted := NewService(f.store, "author_threads.json", f.msgs, f.dir, f.threads, "gallery", "👍", "✅", f.logger)
	require.NoError(t, restarted.HandleReaction(ctx, trigger("m2")))

	assert.Equal(t, 1, f.threads.created)
	assert.Len(t, f.msgs.embeds["thread-1"], 2)
}

func TestIndex_UnmarshalAcceptsNumericThreadIds(t *testing.T) {
	var idx Index
	require.NoError(t, json.Unmarshal([]byte(`{"1": "100", "2": 9007199254740993}`), &idx))
	assert.Equal(t, Index{"1": "100", "2": "9007199254740993"}, idx, "snowflake survives past float64 precision")

	assert.Error(t, json.Unmarshal([]byte(`{"1": true}`), &idx))
}

func TestHandleReaction_NumericIndexFileLoads(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.dir.channels["1234567890123456789"] = &platform.Channel{ID: "1234567890123456789", Kind: platform.ChannelThread}
	ctx := context.Background()

	// Data files from earlier deployments hold thread ids as numbers.
	path := filepath.Join(f.dataDir, "author_threads.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"42": 1234567890123456789}`), 0o644))

	require.NoError(t, f.svc.HandleReaction(ctx, trigger("m1")))

	assert.Zero(t, f.threads.created, "existing thread reused, not recreated")
	assert.Len(t, f.msgs.embeds["1234567890123456789"], 1)

	_, err := os.Stat(path)
	assert.NoError(t, err, "a loadable file must not be reset")
}

func TestHandleReaction_StaleIndexEntrySelfHeals(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	ctx := context.Background()

	// Index points at a thread that no longer resolves.
	require.NoError(t, f.store.Save(ctx, "author_threads.json", Index{"42": "thread-gone"}))

	require.NoError(t, f.svc.HandleReaction(ctx, trigger("m1")))

	require.Equal(t, 1, f.threads.created)
	idx, err := store.Load[Index](ctx, f.store, "author_threads.json")
	require.NoError(t, err)
	assert.Equal(t, Index{"42": "thread-1"}, idx, "stale entry replaced by the new thread")
}

func TestHandleReaction_FailedPostLeavesMessageUnmarked(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.msgs.sendEmbedErr = errors.New("boom")

	err := f.svc.HandleReaction(context.Background(), trigger("m1"))
	require.Error(t, err)
	assert.Empty(t, f.msgs.reactions, "no marker without a successful post")
}

func TestHandleReaction_FailedMarkerIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.msgs.addReactionErr = common.ErrPermissionDenied

	// The post succeeded; the residual duplicate risk is logged, not
	// surfaced.
	require.NoError(t, f.svc.HandleReaction(context.Background(), trigger("m1")))
	require.Len(t, f.msgs.embeds["thread-1"], 1)
}

func TestHandleReaction_NonForumGalleryChannelIsAnError(t *testing.T) {
	f := newFixture(t)
	f.dir.messages["m1"] = artMessage("m1", "42")
	f.dir.byName["gallery"] = &platform.Channel{ID: "text-1", Name: "gallery", Kind: platform.ChannelText}

	err := f.svc.HandleReaction(context.Background(), trigger("m1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a forum")
}
