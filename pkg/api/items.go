package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Kush1612/BuckIt/pkg/client"
	"github.com/Kush1612/BuckIt/pkg/logger"
	json "github.com/json-iterator/go"
)

// ItemsByList fetches the items of a list, newest first unless q.Ascending.
func ItemsByList(ctx context.Context, listID string, q ItemQuery) ([]Item, error) {
	logger.Debug("Fetching items", "list_id", listID, "category", q.Category)

	order := "created_at.desc"
	if q.Ascending {
		order = "created_at.asc"
	}
	params := map[string]string{
		"select":  "*",
		"list_id": "eq." + listID,
		"order":   order,
	}
	if q.Category != "" && q.Category != CategoryAll {
		params["category"] = "eq." + q.Category
	}
	if q.Completed != nil {
		params["completed"] = "is." + strconv.FormatBool(*q.Completed)
	}

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/rest/v1/items")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, err
	}

	logger.Debug("Items fetched", "list_id", listID, "count", len(items))
	return items, nil
}

// GetItem fetches one item by id.
func GetItem(ctx context.Context, id string) (*Item, error) {
	logger.Debug("Fetching item", "item_id", id)

	c, err := client.GetClient()
	if err != nil {
		return nil, err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParam("select", "*").
		SetQueryParam("id", "eq."+id).
		Get("/rest/v1/items")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, notFound(fmt.Sprintf("item %s not found", id))
	}
	return &items[0], nil
}

// CreateItem inserts an item and returns the stored row.
func CreateItem(ctx context.Context, item NewItem) (*Item, error) {
	logger.Debug("Creating item", "list_id", item.ListID, "title", item.Title)

	if item.Photos == nil {
		item.Photos = []string{}
	}
	if item.Memories == nil {
		item.Memories = []Memory{}
	}
	reqBody, err := json.Marshal(item)
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
		Post("/rest/v1/items")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var rows []Item
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create item: empty response")
	}

	logger.Debug("Item created", "item_id", rows[0].ID)
	return &rows[0], nil
}

// UpdateItem applies a partial update and returns the stored row.
func UpdateItem(ctx context.Context, id string, patch map[string]interface{}) (*Item, error) {
	logger.Debug("Updating item", "item_id", id, "fields", len(patch))

	reqBody, err := json.Marshal(patch)
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
		SetQueryParam("id", "eq."+id).
		SetBody(reqBody).
		Patch("/rest/v1/items")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var rows []Item
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(fmt.Sprintf("item %s not found", id))
	}
	return &rows[0], nil
}

// DeleteItemsByList removes every item of a list.
func DeleteItemsByList(ctx context.Context, listID string) error {
	logger.Debug("Deleting items", "list_id", listID)

	c, err := client.GetClient()
	if err != nil {
		return err
	}
	resp, err := c.R().
		SetContext(ctx).
		SetQueryParam("list_id", "eq."+listID).
		Delete("/rest/v1/items")

	return CheckResponse(resp, err)
}
