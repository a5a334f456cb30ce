// Package cache stores rendered task pages and evicts them when tasks change.
package cache

import (
	"context"
	"fmt"
	"net/url"
)

// Invalidator is notified by the mutation layer after a task changes
type Invalidator interface {
	InvalidateTaskList(ctx context.Context, organizationID uint64) error
	InvalidateTask(ctx context.Context, organizationID, taskID uint64) error
}

// Stamp records an organization's cache generation. Every invalidation of
// the organization moves the generation forward.
type Stamp struct {
	OrganizationID uint64
	Generation     int64
}

// PageCache holds rendered page bodies keyed by TaskListKey / TaskKey.
// Callers take a Stamp before reading the store; Set drops the body when
// the organization was invalidated after the stamp was taken.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Stamp(ctx context.Context, organizationID uint64) (Stamp, bool)
	Set(ctx context.Context, key string, stamp Stamp, body []byte)
}

// Store is a page cache that can also be invalidated
type Store interface {
	PageCache
	Invalidator
}

func orgPrefix(organizationID uint64) string {
	return fmt.Sprintf("pages:org:%d:tasks:", organizationID)
}

func generationKey(organizationID uint64) string {
	return fmt.Sprintf("pages:org:%d:generation", organizationID)
}

func taskListPrefix(organizationID uint64) string {
	return orgPrefix(organizationID) + "list:"
}

// TaskListKey identifies one rendered page of the task list
func TaskListKey(organizationID uint64, page int, query string) string {
	return fmt.Sprintf("%s%d:%s", taskListPrefix(organizationID), page, url.QueryEscape(query))
}

// TaskKey identifies a rendered task detail page
func TaskKey(organizationID, taskID uint64) string {
	return fmt.Sprintf("%sdetail:%d", orgPrefix(organizationID), taskID)
}

// Noop caches nothing
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)           { return nil, false }
func (Noop) Stamp(context.Context, uint64) (Stamp, bool)          { return Stamp{}, false }
func (Noop) Set(context.Context, string, Stamp, []byte)           {}
func (Noop) InvalidateTaskList(context.Context, uint64) error     { return nil }
func (Noop) InvalidateTask(context.Context, uint64, uint64) error { return nil }
