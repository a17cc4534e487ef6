package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/logger"
	json "github.com/json-iterator/go"
)

// inFilter renders a PostgREST in.(...) filter.
func inFilter(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

func getLists(ctx context.Context, params map[string]string) ([]List, error) {
	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParams(params).
		Get("/rest/v1/lists")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var lists []List
	if err := json.Unmarshal(resp.Body(), &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetList fetches a single list by id.
func GetList(ctx context.Context, id string) (*List, error) {
	logger.Debug("Fetching list", "list_id", id)

	lists, err := getLists(ctx, map[string]string{"id": "eq." + id})
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, notFound(fmt.Sprintf("list %s not found", id))
	}
	return &lists[0], nil
}

// ListsByIDs fetches the lists with the given ids, newest first.
func ListsByIDs(ctx context.Context, ids []string) ([]List, error) {
	logger.Debug("Fetching lists", "count", len(ids))

	if len(ids) == 0 {
		return []List{}, nil
	}
	return getLists(ctx, map[string]string{
		"id":    inFilter(ids),
		"order": "created_at.desc",
	})
}

// ListsByOwner fetches every list owned by email.
func ListsByOwner(ctx context.Context, email string) ([]List, error) {
	logger.Debug("Fetching owned lists", "owner", email)

	return getLists(ctx, map[string]string{
		"owner": "eq." + email,
		"order": "created_at.desc",
	})
}

// ListByInviteCode finds the list a code invites to.
func ListByInviteCode(ctx context.Context, code string) (*List, error) {
	logger.Debug("Looking up invite code", "code", code)

	lists, err := getLists(ctx, map[string]string{
		"invite_code": "eq." + code,
		"limit":       "1",
	})
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, notFound("no list matches invite code " + code)
	}
	return &lists[0], nil
}

// CreateList inserts a list and returns the stored row.
func CreateList(ctx context.Context, l NewList) (*List, error) {
	logger.Debug("Creating list", "name", l.Name)

	reqBody, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody(reqBody).
		Post("/rest/v1/lists")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var rows []List
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create list: empty response")
	}

	logger.Debug("List created", "list_id", rows[0].ID)
	return &rows[0], nil
}

// DeleteList removes a list row.
func DeleteList(ctx context.Context, id string) error {
	logger.Debug("Deleting list", "list_id", id)

	c, err := client.GetClient()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParam("id", "eq."+id).
		Delete("/rest/v1/lists")

	return CheckResponse(resp, err)
}
