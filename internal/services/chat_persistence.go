package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumina-chat/lumina-backend/internal/database"
	"github.com/lumina-chat/lumina-backend/internal/models"
)

const messagesCollection = "messages"

// Message ids are ULIDs drawn from a locked monotonic source: sortable by
// creation time, and strictly increasing within this process even when two
// appends land on the same millisecond. Display order is (created_at, id).
var ulidEntropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

func newMessageID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulidEntropy).String()
}

// EnsureChatIndexes configures indexes for the messages collection.
// Called on startup from main after Mongo has connected.
func EnsureChatIndexes(ctx context.Context) error {
	col := database.DB.Collection(messagesCollection)

	// Compound index on (conversation_key, created_at) to support
	// efficient pagination.
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_key", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_conversation_created"),
	}
	_, err := col.Indexes().CreateOne(ctx, model)
	return err
}

// AppendMessage runs the full append path: authorization gate, ordered
// insert, ledger updates for both participants, unread increment for the
// recipient only, and the realtime event.
func AppendMessage(ctx context.Context, conversationKey, senderID, body string) (*models.Message, error) {
	recipientID, err := ChatPeer(conversationKey, senderID)
	if err != nil {
		return nil, err
	}

	if err := authorizeAppend(ctx, conversationKey, senderID, recipientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:              newMessageID(now),
		ConversationKey: conversationKey,
		SenderID:        senderID,
		Body:            body,
		CreatedAt:       now,
		Status:          models.MessageStatusSent,
	}

	col := database.DB.Collection(messagesCollection)
	if _, err := col.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	// Both ledger rows get the preview; only the recipient's unread
	// counter moves, and it moves atomically.
	if err := TouchConversation(ctx, senderID, conversationKey, body, now); err != nil {
		return nil, err
	}
	if recipientID != senderID {
		if err := TouchConversation(ctx, recipientID, conversationKey, body, now); err != nil {
			return nil, err
		}
		if err := IncrementUnread(ctx, recipientID, conversationKey); err != nil {
			return nil, err
		}
		_ = publishLedgerUpdate(ctx, recipientID, conversationKey)
	}
	_ = publishLedgerUpdate(ctx, senderID, conversationKey)

	PushMessageToRecentCache(*msg)

	_ = PublishConversationEvent(ctx, ChatEvent{
		Type:            EventTypeMessage,
		ConversationKey: conversationKey,
		Message:         msg,
	})

	return msg, nil
}

// authorizeAppend gates message sends: the sender must be encoded in
// the key, neither party may be blocked, and a recipient running a
// require-request policy must share a contact edge with the sender unless
// the conversation predates the policy.
func authorizeAppend(ctx context.Context, conversationKey, senderID, recipientID string) error {
	sender, err := GetUserByID(ctx, senderID)
	if err != nil {
		return err
	}
	if sender.Blocked {
		return models.ErrUnauthorized
	}

	if recipientID == senderID {
		// Self chat: notes to yourself, no policy to consult.
		return nil
	}

	recipient, err := GetUserByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if recipient.Blocked {
		return models.ErrUnauthorized
	}

	settings, err := GetPrivacySettings(ctx, recipientID)
	if err != nil {
		return err
	}
	if !settings.RequireRequest {
		return nil
	}

	contacts, err := AreContacts(ctx, senderID, recipientID)
	if err != nil {
		return err
	}
	if contacts {
		return nil
	}

	// An established conversation predates the policy flip and stays open.
	existing, err := LedgerEntryExists(ctx, recipientID, conversationKey)
	if err != nil {
		return err
	}
	if existing {
		return nil
	}
	return models.ErrUnauthorized
}

// getMessage loads one message document, fail-closed on malformed records.
func getMessage(ctx context.Context, conversationKey, messageID string) (*models.Message, error) {
	col := database.DB.Collection(messagesCollection)

	var msg models.Message
	err := col.FindOne(ctx, bson.M{
		"_id":              messageID,
		"conversation_key": conversationKey,
	}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
	}
	return &msg, nil
}

// EditMessage overwrites a message body in place. Only the sender may
// edit, tombstones are immutable, and the edit refreshes created_at
// (last write wins; no history is kept).
func EditMessage(ctx context.Context, conversationKey, messageID, editorID, newBody string) (*models.Message, error) {
	msg, err := getMessage(ctx, conversationKey, messageID)
	if err != nil {
		return nil, err
	}

	if err := msg.ApplyEdit(editorID, newBody, time.Now().UTC()); err != nil {
		return nil, err
	}

	col := database.DB.Collection(messagesCollection)
	_, err = col.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": bson.M{
		"body":       msg.Body,
		"edited":     true,
		"created_at": msg.CreatedAt,
	}})
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}

	InvalidateRecentCache(ctx, conversationKey)
	_ = PublishConversationEvent(ctx, ChatEvent{
		Type:            EventTypeMessageEdited,
		ConversationKey: conversationKey,
		Message:         msg,
	})
	return msg, nil
}

// DeleteMessage tombstones a message: placeholder body, deleted flag,
// position in the sequence preserved for both parties.
func DeleteMessage(ctx context.Context, conversationKey, messageID, editorID string) (*models.Message, error) {
	msg, err := getMessage(ctx, conversationKey, messageID)
	if err != nil {
		return nil, err
	}

	if err := msg.ApplyDelete(editorID); err != nil {
		return nil, err
	}

	col := database.DB.Collection(messagesCollection)
	_, err = col.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": bson.M{
		"body":    models.DeletedPlaceholder,
		"deleted": true,
	}})
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	InvalidateRecentCache(ctx, conversationKey)
	_ = PublishConversationEvent(ctx, ChatEvent{
		Type:            EventTypeMessageDeleted,
		ConversationKey: conversationKey,
		Message:         msg,
	})
	return msg, nil
}

// MarkMessageSeen flips sent -> seen. Only the non-sender may mark, the
// call is idempotent, and a reader with read receipts disabled produces
// no visible transition.
func MarkMessageSeen(ctx context.Context, conversationKey, messageID, readerID string) error {
	if _, err := ChatPeer(conversationKey, readerID); err != nil {
		return err
	}

	settings, err := GetPrivacySettings(ctx, readerID)
	if err != nil {
		return err
	}
	if !settings.ReadReceipts {
		return nil
	}

	msg, err := getMessage(ctx, conversationKey, messageID)
	if err != nil {
		return err
	}
	if err := msg.ApplySeen(readerID); err != nil {
		return err
	}

	col := database.DB.Collection(messagesCollection)
	_, err = col.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{"$set": bson.M{
		"status": models.MessageStatusSeen,
	}})
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	InvalidateRecentCache(ctx, conversationKey)
	_ = PublishConversationEvent(ctx, ChatEvent{
		Type:            EventTypeMessageSeen,
		ConversationKey: conversationKey,
		MessageID:       messageID,
		UserID:          readerID,
	})
	return nil
}

// LoadMessages returns paginated history for a conversation, oldest-first.
// The cursor is the (created_at, id) pair of the oldest message already
// loaded, so siblings sharing a timestamp never fall through a page edge;
// when beforeID is empty the cursor degrades to the timestamp alone.
func LoadMessages(ctx context.Context, conversationKey string, before *time.Time, beforeID string, limit int64) ([]models.Message, bool, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	col := database.DB.Collection(messagesCollection)

	filter := bson.M{"conversation_key": conversationKey}
	if before != nil {
		if beforeID != "" {
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": before.UTC()}},
				bson.M{"created_at": before.UTC(), "_id": bson.M{"$lt": beforeID}},
			}
		} else {
			filter["created_at"] = bson.M{"$lt": before.UTC()}
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, fmt.Errorf("load messages: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, false, fmt.Errorf("%w: %v", models.ErrMalformed, err)
		}
		msgs = append(msgs, m)
	}
	if err := cur.Err(); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(msgs)) > limit
	if hasMore {
		msgs = msgs[:len(msgs)-1]
	}

	// Reverse to oldest-first for rendering.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, hasMore, nil
}
