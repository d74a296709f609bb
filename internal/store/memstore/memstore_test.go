package memstore

import (
	"context"
	"math"
	"sync"
	"testing"

	"blogtalk/internal/models"
	"blogtalk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st    *Store
	owner models.User
	alice models.User
	bob   models.User
	post  models.Post
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := New()
	owner := st.AddUser("owner", false)
	alice := st.AddUser("alice", false)
	bob := st.AddUser("bob", false)
	blog := st.AddBlog("daily", owner.ID)
	post := st.AddPost(blog.ID, owner.ID, true, true)
	return fixture{st: st, owner: owner, alice: alice, bob: bob, post: post}
}

func (f fixture) comment(t *testing.T, author uint, body string, replyTo *uint) *models.Comment {
	t.Helper()
	c, err := f.st.CreateComment(context.Background(), store.NewComment{
		PostID: f.post.ID, AuthorID: author, Body: body, ReplyTo: replyTo,
	})
	require.NoError(t, err)
	return c
}

func TestCreateComment_NumbersAreSequentialAndUnique(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.st.CreateComment(context.Background(), store.NewComment{
				PostID: f.post.ID, AuthorID: f.alice.ID, Body: "hi",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	comments := f.st.Comments(f.post.ID)
	require.Len(t, comments, 50)
	for i, c := range comments {
		require.Equal(t, uint(i+1), c.Number)
	}
}

func TestCreateComment_Threading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.comment(t, f.alice.ID, "top", nil)
	reply := f.comment(t, f.bob.ID, "reply", &top.Number)
	require.NotNil(t, reply.ReplyTo)
	require.Equal(t, top.Number, reply.ReplyTo.Number)

	_, err := f.st.CreateComment(ctx, store.NewComment{PostID: f.post.ID, AuthorID: f.alice.ID, Body: "deep", ReplyTo: &reply.Number})
	require.ErrorIs(t, err, store.ErrInvalidThread)

	missing := uint(99)
	_, err = f.st.CreateComment(ctx, store.NewComment{PostID: f.post.ID, AuthorID: f.alice.ID, Body: "x", ReplyTo: &missing})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.st.CreateComment(ctx, store.NewComment{PostID: f.post.ID, AuthorID: f.alice.ID, Body: "   "})
	require.ErrorIs(t, err, store.ErrEmptyBody)
}

func TestDeleteComment_CascadesAndNumbersAreNotReused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.comment(t, f.alice.ID, "top", nil)
	reply := f.comment(t, f.bob.ID, "@alice reply", &top.Number)
	other := f.comment(t, f.bob.ID, "other", nil)

	_, _, err := f.st.ToggleReaction(ctx, reply.ID, f.alice.ID, models.ReactionLike)
	require.NoError(t, err)
	require.NoError(t, f.st.CreateNotifications(ctx, []models.Notification{{
		AddresseeID: f.alice.ID, AuthorID: f.bob.ID, PostID: f.post.ID,
		ParentCommentID: &top.ID, RepliedCommentID: reply.ID, Text: "t",
	}}))

	require.NoError(t, f.st.DeleteComment(ctx, top.ID))
	require.ErrorIs(t, f.st.DeleteComment(ctx, top.ID), store.ErrNotFound)

	left := f.st.Comments(f.post.ID)
	require.Len(t, left, 1)
	require.Equal(t, other.ID, left[0].ID)
	require.Empty(t, f.st.Notifications())
	require.Empty(t, f.st.Members(reply.ID, models.ReactionLike))

	next := f.comment(t, f.alice.ID, "after delete", nil)
	require.Equal(t, uint(4), next.Number)
}

func TestSetPinned_SwapsPin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.comment(t, f.alice.ID, "a", nil)
	b := f.comment(t, f.alice.ID, "b", nil)
	r := f.comment(t, f.bob.ID, "r", &a.Number)

	pinned, err := f.st.SetPinned(ctx, f.post.ID, a.ID, f.owner.ID)
	require.NoError(t, err)
	require.True(t, pinned.IsPinned)
	require.Equal(t, f.owner.ID, pinned.PinnedBy.ID)

	_, err = f.st.SetPinned(ctx, f.post.ID, a.ID, f.owner.ID)
	require.ErrorIs(t, err, store.ErrAlreadyPinned)

	_, err = f.st.SetPinned(ctx, f.post.ID, r.ID, f.owner.ID)
	require.ErrorIs(t, err, store.ErrReplyNotPinnable)

	_, err = f.st.SetPinned(ctx, f.post.ID, b.ID, f.owner.ID)
	require.NoError(t, err)

	var pins []uint
	for _, c := range f.st.Comments(f.post.ID) {
		if c.IsPinned {
			pins = append(pins, c.ID)
		}
	}
	require.Equal(t, []uint{b.ID}, pins)

	_, err = f.st.UnsetPinned(ctx, a.ID)
	require.ErrorIs(t, err, store.ErrNotPinned)

	unpinned, err := f.st.UnsetPinned(ctx, b.ID)
	require.NoError(t, err)
	require.False(t, unpinned.IsPinned)
	require.Nil(t, unpinned.PinnedByID)
}

func TestToggleReaction_CountersMatchMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.comment(t, f.owner.ID, "c", nil)

	steps := []struct {
		user uint
		kind models.ReactionKind
	}{
		{f.alice.ID, models.ReactionLike},
		{f.bob.ID, models.ReactionDislike},
		{f.alice.ID, models.ReactionDislike},
		{f.bob.ID, models.ReactionLike},
		{f.bob.ID, models.ReactionLike},
		{f.alice.ID, models.ReactionDislike},
		{f.owner.ID, models.ReactionLike},
	}

	var last *models.Comment
	for _, s := range steps {
		var err error
		last, _, err = f.st.ToggleReaction(ctx, c.ID, s.user, s.kind)
		require.NoError(t, err)

		liked := f.st.Members(c.ID, models.ReactionLike)
		disliked := f.st.Members(c.ID, models.ReactionDislike)
		require.Equal(t, len(liked), last.Likes)
		require.Equal(t, len(disliked), last.Dislikes)
		for _, u := range liked {
			require.NotContains(t, disliked, u)
		}
	}
	require.Equal(t, 1, last.Likes)
	require.Equal(t, 0, last.Dislikes)

	mine, err := f.st.ReactionsOf(ctx, f.owner.ID, []uint{c.ID})
	require.NoError(t, err)
	require.Equal(t, models.ReactionLike, mine[c.ID])
}

func TestToggleAuthorLike_Flips(t *testing.T) {
	f := newFixture(t)
	c := f.comment(t, f.alice.ID, "c", nil)

	got, err := f.st.ToggleAuthorLike(context.Background(), c.ID)
	require.NoError(t, err)
	require.True(t, got.LikedByAuthor)
	got, err = f.st.ToggleAuthorLike(context.Background(), c.ID)
	require.NoError(t, err)
	require.False(t, got.LikedByAuthor)
	require.Zero(t, got.Likes)
}

func TestListComments_PinnedFirstAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []*models.Comment
	for i := 0; i < 4; i++ {
		created = append(created, f.comment(t, f.alice.ID, "c", nil))
	}
	f.comment(t, f.bob.ID, "reply", &created[0].Number)
	_, err := f.st.SetPinned(ctx, f.post.ID, created[1].ID, f.owner.ID)
	require.NoError(t, err)

	newest, total, err := f.st.ListComments(ctx, store.ListQuery{PostID: f.post.ID, Sort: store.SortNewest, Limit: 3})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Equal(t, []uint{2, 4, 3}, numbers(newest))

	oldest, _, err := f.st.ListComments(ctx, store.ListQuery{PostID: f.post.ID, Sort: store.SortOldest, Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Equal(t, []uint{4}, numbers(oldest))

	parent := created[0].ID
	replies, total, err := f.st.ListComments(ctx, store.ListQuery{PostID: f.post.ID, ParentID: &parent, Limit: 5})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, []uint{5}, numbers(replies))

	counts, err := f.st.ReplyCounts(ctx, []uint{created[0].ID, created[1].ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, counts[created[0].ID])
	require.Zero(t, counts[created[1].ID])
}

func TestList_OutOfRangeOffsets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.comment(t, f.alice.ID, "c", nil)
	f.comment(t, f.alice.ID, "c", nil)

	for _, offset := range []int{-1, 2, math.MaxInt} {
		got, total, err := f.st.ListComments(ctx, store.ListQuery{PostID: f.post.ID, Limit: 5, Offset: offset})
		require.NoError(t, err)
		require.EqualValues(t, 2, total)
		if offset < 0 {
			require.Len(t, got, 2)
		} else {
			require.Empty(t, got)
		}

		notes, _, err := f.st.ListNotifications(ctx, f.alice.ID, 5, offset)
		require.NoError(t, err)
		require.Empty(t, notes)
	}
}

func TestNotifications_Flags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.comment(t, f.bob.ID, "@alice", nil)

	items := []models.Notification{
		{AddresseeID: f.alice.ID, AuthorID: f.bob.ID, PostID: f.post.ID, RepliedCommentID: c.ID, Text: "1"},
		{AddresseeID: f.alice.ID, AuthorID: f.bob.ID, PostID: f.post.ID, RepliedCommentID: c.ID, Text: "2"},
	}
	require.NoError(t, f.st.CreateNotifications(ctx, items))
	require.NotZero(t, items[0].ID)

	unread, err := f.st.UnreadNotifications(ctx, f.alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	require.NoError(t, f.st.MarkNotificationRead(ctx, items[0].ID, f.alice.ID))
	require.NoError(t, f.st.MarkNotificationRead(ctx, items[0].ID, f.alice.ID))
	require.ErrorIs(t, f.st.MarkNotificationRead(ctx, items[0].ID, f.bob.ID), store.ErrNotFound)
	require.NoError(t, f.st.HideNotification(ctx, items[1].ID, f.alice.ID))

	list, total, err := f.st.ListNotifications(ctx, f.alice.ID, 5, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "1", list[0].Text)
	require.Equal(t, "bob", list[0].Author.Username)
	require.Equal(t, "daily", list[0].Post.Blog.Slug)

	n, err := f.st.MarkAllNotificationsRead(ctx, f.alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func numbers(cs []models.Comment) []uint {
	out := make([]uint, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Number)
	}
	return out
}
