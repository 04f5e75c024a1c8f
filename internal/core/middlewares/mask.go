package middlewares

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"

	"gqlrelay/internal/core"
	"gqlrelay/internal/core/security"
)

// Mask replaces secrets found in string variables with placeholders before the
// request leaves, keeping the originals in the request vault. Placeholders that
// come back inside response data are restored. tags limits the scanner rules; nil
// means all.
func Mask(scanner *security.Scanner, tags []string) core.Middleware {
	if scanner == nil {
		scanner = security.NewScanner()
	}

	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			body, err := maskVariables(req, func(s string) string {
				return scanner.Mask(req, s, tags)
			})
			if err != nil {
				return nil, err
			}
			req.Body = body

			resp, err := next(ctx, req)
			if err != nil || resp == nil || resp.Data == nil {
				return resp, err
			}

			data, err := rewriteStrings(resp.Data, func(s string) string {
				return scanner.Unmask(req, s)
			})
			if err != nil {
				return nil, err
			}

			restored := *resp
			restored.Data = data
			return &restored, nil
		}
	}
}

// maskVariables rewrites string values under "variables"; bodies without
// variables, or that are not JSON, are returned unchanged
func maskVariables(req *core.Request, fn func(string) string) ([]byte, error) {
	root, err := sonic.Get(req.Body)
	if err != nil {
		return req.Body, nil
	}

	variables := root.Get("variables")
	if err := variables.Check(); err != nil {
		return req.Body, nil
	}
	if variables.Type() != ast.V_OBJECT {
		return req.Body, nil
	}

	changed, err := walkStrings(variables, fn)
	if err != nil {
		return nil, fmt.Errorf("mask variables: %w", err)
	}
	if !changed {
		return req.Body, nil
	}
	return root.MarshalJSON()
}

// rewriteStrings applies fn to every string value in a JSON document
func rewriteStrings(doc []byte, fn func(string) string) ([]byte, error) {
	root, err := sonic.Get(doc)
	if err != nil {
		return doc, nil
	}

	switch root.Type() {
	case ast.V_STRING:
		s, err := root.String()
		if err != nil {
			return doc, nil
		}
		return sonic.Marshal(fn(s))
	case ast.V_OBJECT, ast.V_ARRAY:
		changed, err := walkStrings(&root, fn)
		if err != nil {
			return nil, fmt.Errorf("rewrite data: %w", err)
		}
		if !changed {
			return doc, nil
		}
		return root.MarshalJSON()
	default:
		return doc, nil
	}
}

// walkStrings applies fn to string values below an object or array node in place
func walkStrings(node *ast.Node, fn func(string) string) (bool, error) {
	changed := false

	switch node.Type() {
	case ast.V_OBJECT:
		var keys []string
		if err := node.ForEach(func(path ast.Sequence, _ *ast.Node) bool {
			if path.Key != nil {
				keys = append(keys, *path.Key)
			}
			return true
		}); err != nil {
			return false, err
		}

		for _, key := range keys {
			child := node.Get(key)
			c, err := rewriteChild(child, fn, func(n ast.Node) error {
				_, err := node.Set(key, n)
				return err
			})
			if err != nil {
				return false, err
			}
			changed = changed || c
		}

	case ast.V_ARRAY:
		length, err := node.Len()
		if err != nil {
			return false, err
		}
		for i := 0; i < length; i++ {
			idx := i
			child := node.Index(idx)
			c, err := rewriteChild(child, fn, func(n ast.Node) error {
				_, err := node.SetByIndex(idx, n)
				return err
			})
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
	}

	return changed, nil
}

func rewriteChild(child *ast.Node, fn func(string) string, replace func(ast.Node) error) (bool, error) {
	if err := child.Check(); err != nil {
		return false, nil
	}

	switch child.Type() {
	case ast.V_STRING:
		s, err := child.String()
		if err != nil {
			return false, nil
		}
		rewritten := fn(s)
		if rewritten == s {
			return false, nil
		}
		return true, replace(ast.NewString(rewritten))
	case ast.V_OBJECT, ast.V_ARRAY:
		return walkStrings(child, fn)
	default:
		return false, nil
	}
}
