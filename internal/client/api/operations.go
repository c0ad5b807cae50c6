package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.do(ctx, http.MethodPost, "/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, nil)
}

// Login authenticates and returns the one-time-visible access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListQuery carries the task listing filters.
type ListQuery struct {
	Term     string
	Statuses []string
	Limit    int
	Page     int
}

func (c *Client) ListTasks(ctx context.Context, q ListQuery) (*TasksPage, error) {
	params := url.Values{}
	if q.Term != "" {
		params.Set("query", q.Term)
	}
	for _, s := range q.Statuses {
		params.Add("status", s)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}

	path := "/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page TasksPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, title, description string, todos []TodoInput) (*Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPost, "/tasks", map[string]any{
		"title":       title,
		"description": description,
		"todos":       todos,
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// PatchTask sends a raw patch document; the caller controls key presence.
func (c *Client) PatchTask(ctx context.Context, id string, patch map[string]any) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), patch, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (*Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPatch, "/tasks-status/"+url.PathEscape(id), map[string]string{
		"status": status,
	}, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) SetTodoDone(ctx context.Context, id string, done bool) (*Todo, error) {
	var todo Todo
	err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), map[string]bool{
		"done": done,
	}, &todo)
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateAttachment registers an upload on a task and returns the presigned
// PUT URL to push the file bytes to.
func (c *Client) CreateAttachment(ctx context.Context, taskID, fileName string) (string, error) {
	var resp struct {
		UploadURL string `json:"upload_url"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%s/attachments", url.PathEscape(taskID)), map[string]string{
		"file_name": fileName,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.UploadURL, nil
}

func (c *Client) AttachmentURL(ctx context.Context, id string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/attachments/%s/url", url.PathEscape(id)), nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}
