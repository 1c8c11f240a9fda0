package models

import (
	"database/sql/driver"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// keySeparator never appears in user codes.
const keySeparator = "|"

// NormalizeCode returns the canonical form of a user code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ConversationKey canonicalizes an unordered pair of user codes.
// ConversationKey(a, b) == ConversationKey(b, a) for every input.
func ConversationKey(a, b string) string {
	codes := []string{NormalizeCode(a), NormalizeCode(b)}
	sort.Strings(codes)
	return strings.Join(codes, keySeparator)
}

// ParticipantsFromKey splits a conversation key back into its two codes.
func ParticipantsFromKey(key string) CodeList {
	return CodeList(strings.SplitN(key, keySeparator, 2))
}

// CodeList is a list of user codes. On PostgreSQL it is stored as text[]
// through pq.StringArray, elsewhere as the same array literal in a text column.
type CodeList []string

// Value implements driver.Valuer.
func (l CodeList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// Scan implements sql.Scanner.
func (l *CodeList) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*l = CodeList(arr)
	return nil
}

// GormDataType lets schema parsing accept the slice as a scalar column.
func (CodeList) GormDataType() string {
	return "text"
}

// GormDBDataType picks the column type per dialect.
func (CodeList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Conversation is the record for one unordered pair of users.
// ParticipantsKey is globally unique: exactly one conversation per pair.
type Conversation struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Participants    CodeList  `json:"participants"`
	ParticipantsKey string    `gorm:"size:140;not null;uniqueIndex" json:"participantsKey"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BeforeCreate: хук GORM, генерує UUID, якщо ID ще не встановлено.
func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// NewConversation builds an unsaved conversation for the pair (a, b).
func NewConversation(a, b string) *Conversation {
	key := ConversationKey(a, b)
	return &Conversation{
		Participants:    ParticipantsFromKey(key),
		ParticipantsKey: key,
	}
}
