package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
)

// ListToolInstructions returns all stored tool instructions keyed by tool
// name order.
func (s *Store) ListToolInstructions(ctx context.Context) ([]model.ToolInstruction, error) {
	var out []model.ToolInstruction
	const q = "SELECT tool_name, instructions, updated_by, updated_at FROM tool_instructions ORDER BY tool_name"
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list tool instructions: %w", err)
	}
	return out, nil
}

// GetToolInstruction returns the instruction stored for a tool.
func (s *Store) GetToolInstruction(ctx context.Context, tool string) (*model.ToolInstruction, error) {
	var ti model.ToolInstruction
	q := s.rebind("SELECT tool_name, instructions, updated_by, updated_at FROM tool_instructions WHERE tool_name = ?")
	if err := s.db.GetContext(ctx, &ti, q, tool); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get tool instruction: %w", err)
	}
	return &ti, nil
}

// PutToolInstruction creates or replaces the instruction for a tool. The
// upsert is a delete followed by an insert in one transaction so that it works
// identically on every backend.
func (s *Store) PutToolInstruction(ctx context.Context, ti *model.ToolInstruction) error {
	ti.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM tool_instructions WHERE tool_name = ?"), ti.ToolName); err != nil {
		return fmt.Errorf("delete tool instruction: %w", err)
	}
	const q = `INSERT INTO tool_instructions (tool_name, instructions, updated_by, updated_at)
		VALUES (:tool_name, :instructions, :updated_by, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, q, ti); err != nil {
		return fmt.Errorf("insert tool instruction: %w", err)
	}
	return tx.Commit()
}

// DeleteToolInstruction removes the instruction for a tool.
func (s *Store) DeleteToolInstruction(ctx context.Context, tool string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM tool_instructions WHERE tool_name = ?"), tool)
	if err != nil {
		return fmt.Errorf("delete tool instruction: %w", err)
	}
	return rowsOrNotFound(result, "delete tool instruction")
}

// ToolInstructionMap returns instructions keyed by tool name.
func (s *Store) ToolInstructionMap(ctx context.Context) (map[string]string, error) {
	list, err := s.ListToolInstructions(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(list))
	for _, ti := range list {
		m[ti.ToolName] = ti.Instructions
	}
	return m, nil
}
