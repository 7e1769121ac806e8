package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"family-battle/internal/model"
)

// MemberRepository handles battle membership persistence. Membership is
// append-only from the family's perspective: parents invite children,
// nobody is removed mid-battle.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository instance.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// Add invites a member into the family's battle. Re-inviting an
// existing member only refreshes the display name.
func (r *MemberRepository) Add(ctx context.Context, m *model.Member) error {
	const query = `
		INSERT INTO battle_members (family_id, member_id, role, display_name, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (family_id, member_id) DO UPDATE SET display_name = EXCLUDED.display_name
	`

	if _, err := r.pool.Exec(ctx, query, m.FamilyID, m.MemberID, m.Role, m.DisplayName); err != nil {
		return fmt.Errorf("failed to add battle member: %w", err)
	}
	return nil
}

// ListByFamily returns every member invited into the family's battle,
// ordered by member id so aggregation output is deterministic.
func (r *MemberRepository) ListByFamily(ctx context.Context, familyID string) ([]*model.Member, error) {
	const query = `
		SELECT family_id, member_id, role, display_name, joined_at
		FROM battle_members
		WHERE family_id = $1
		ORDER BY member_id
	`

	rows, err := r.pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list battle members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		var m model.Member
		err := rows.Scan(
			&m.FamilyID,
			&m.MemberID,
			&m.Role,
			&m.DisplayName,
			&m.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan battle member: %w", err)
		}
		members = append(members, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating battle members: %w", err)
	}

	return members, nil
}
