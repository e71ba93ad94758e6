package fetcher

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently.
// Update these when extraction breaks.

const (
	SelPostArticle = `article[data-testid="tweet"]`
	SelPostText    = `[data-testid="tweetText"]`

	// Engagement controls carry the count in their accessible label. Each
	// control has a toggled variant shown when the logged-in session already
	// interacted with the post.
	SelLike           = `[data-testid="like"]`
	SelUnlike         = `[data-testid="unlike"]`
	SelRepost         = `[data-testid="retweet"]`
	SelUnrepost       = `[data-testid="unretweet"]`
	SelBookmark       = `[data-testid="bookmark"]`
	SelRemoveBookmark = `[data-testid="removeBookmark"]`

	// The view count lives on the analytics link.
	SelAnalyticsLink = `a[href*="/analytics"]`

	// Attached photos.
	SelPhotoImage = `[data-testid="tweetPhoto"] img`
)
