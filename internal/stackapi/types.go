package stackapi

import (
	"encoding/json"
	"strconv"
)

const (
	accountIdentifierNullLiteralConstant = "null"
)

// ArticleType identifies the article subtype reported by the knowledge base.
type ArticleType string

// Article subtypes known to the knowledge base. Unknown values are passed through untouched.
const (
	ArticleTypeKnowledgeArticle ArticleType = ArticleType("knowledgeArticle")
	ArticleTypeAnnouncement     ArticleType = ArticleType("announcement")
	ArticleTypeHowToGuide       ArticleType = ArticleType("howToGuide")
	ArticleTypePolicy           ArticleType = ArticleType("policy")
)

// OwnerReference describes the author of a record: either a known account identifier or unknown.
// The zero value is unknown.
type OwnerReference struct {
	accountIdentifier int
	known             bool
}

// KnownOwner references an account that still resolves on the knowledge base.
func KnownOwner(accountIdentifier int) OwnerReference {
	return OwnerReference{accountIdentifier: accountIdentifier, known: true}
}

// UnknownOwner references a deleted or otherwise unresolvable author.
func UnknownOwner() OwnerReference {
	return OwnerReference{}
}

// AccountID returns the account identifier and whether the owner is known.
func (reference OwnerReference) AccountID() (int, bool) {
	return reference.accountIdentifier, reference.known
}

// Known reports whether the owner resolves to an account.
func (reference OwnerReference) Known() bool {
	return reference.known
}

// String renders the reference for diagnostics.
func (reference OwnerReference) String() string {
	if !reference.known {
		return "unknown"
	}
	return strconv.Itoa(reference.accountIdentifier)
}

// UnmarshalJSON decodes an owner object. Any payload without a numeric accountId decodes as unknown.
func (reference *OwnerReference) UnmarshalJSON(data []byte) error {
	*reference = UnknownOwner()

	var payload struct {
		AccountID *int `json:"accountId"`
	}
	if decodingError := json.Unmarshal(data, &payload); decodingError != nil {
		return nil
	}
	if payload.AccountID == nil {
		return nil
	}

	*reference = KnownOwner(*payload.AccountID)
	return nil
}

// MarshalJSON encodes known owners as {"accountId":N} and unknown owners as null.
func (reference OwnerReference) MarshalJSON() ([]byte, error) {
	if !reference.known {
		return []byte(accountIdentifierNullLiteralConstant), nil
	}
	return json.Marshal(struct {
		AccountID int `json:"accountId"`
	}{AccountID: reference.accountIdentifier})
}

// Tag is a tag attached to a question or article.
type Tag struct {
	Name string `json:"name"`
}

// TagNames extracts tag names preserving source order and duplicates.
func TagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

// Question is a question record as returned by the knowledge base.
type Question struct {
	ID       int            `json:"id"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Tags     []Tag          `json:"tags"`
	Owner    OwnerReference `json:"owner"`
	ShareURL string         `json:"shareUrl"`
}

// Answer is an answer record. The knowledge base reports its public URL as shareLink.
type Answer struct {
	ID         int            `json:"id"`
	QuestionID int            `json:"questionId"`
	Body       string         `json:"body"`
	Owner      OwnerReference `json:"owner"`
	ShareURL   string         `json:"shareLink"`
}

// Article is an article record.
type Article struct {
	ID       int            `json:"id"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Type     ArticleType    `json:"type"`
	Tags     []Tag          `json:"tags"`
	Owner    OwnerReference `json:"owner"`
	ShareURL string         `json:"shareUrl"`
}

// QuestionDraft carries the fields needed to create a question.
type QuestionDraft struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// AnswerDraft carries the fields needed to create an answer.
type AnswerDraft struct {
	Body string `json:"body"`
}

// ArticleDraft carries the fields needed to create an article.
type ArticleDraft struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Type  ArticleType `json:"type"`
	Tags  []string    `json:"tags"`
}

// ImpersonationToken is a short-lived credential attributing writes to AccountID.
type ImpersonationToken struct {
	AccountID int
	Value     string
}

type pagedResponse[Item any] struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
	TotalCount int    `json:"totalCount"`
}
