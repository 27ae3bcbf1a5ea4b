package friendship

import (
	"time"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	// FriendshipBlocked is reserved; no operation produces it.
	FriendshipBlocked FriendshipStatus = "blocked"
)

// Friendship is one directed edge. Direction only matters while pending
// (who asked whom); once accepted it stands for an undirected relationship.
type Friendship struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requesterId"`
	RecipientID string           `json:"recipientId"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (f *Friendship) Clone() *Friendship {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func (f *Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherParty returns the id on the edge that is not userID.
func (f *Friendship) OtherParty(userID string) string {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// PairKey identifies the unordered {requester, recipient} pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

type SendRequest struct {
	RecipientID string `json:"recipientId,omitempty"`
	Username    string `json:"username,omitempty"`
}

// FriendRequestWithUser is a pending edge together with the user on the
// other end, as shown in the incoming/outgoing request lists.
type FriendRequestWithUser struct {
	*Friendship
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
