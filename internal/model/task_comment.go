package model

import "time"

// CommentMaxLength bounds the length of a task comment in characters.
const CommentMaxLength = 400

// TaskComment is a comment left by a relation participant on one task.
// The author never changes after creation.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – author of the comment.
//  TaskID           – task inside the relation's task list.
//  RelationID       – relation owning the task.
//  Comment          – comment text.
//  CreationDate     – creation timestamp.
//  ModificationDate – last edit timestamp (nil when never edited).
type TaskComment struct {
	ID               uint64     // tasks_comments.id
	UserID           uint64     // tasks_comments.user_id
	TaskID           uint64     // tasks_comments.task_id
	RelationID       uint64     // tasks_comments.relation_id
	Comment          string     // tasks_comments.comment
	CreationDate     time.Time  // tasks_comments.creation_date
	ModificationDate *time.Time // tasks_comments.modification_date (nullable)
}
