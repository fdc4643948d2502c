package settlement

import (
	"database/sql"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// SQLiteStore persists settlement records to a SQLite database. Amounts are
// stored as decimal strings so they survive values past int64, output legs as
// JSON, and the initiation date in its own indexed column for date queries.
type SQLiteStore struct {
	db *sql.DB
}

var _ types.SettlementStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens the settlement database at path, creating the file
// and schema as needed. ":memory:" gives a throwaway in-memory database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open settlement database")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply settlement schema")
	}
	return &SQLiteStore{db: db}, nil
}

const settlementColumns = `order_hash, status, offerer, origin_filler, destination_filler, challenger, oracle,
	fill_deadline, optimistic_deadline, challenge_deadline,
	input_token, input_amount, input_max_amount,
	collateral_token, collateral_amount,
	challenger_collateral_token, challenger_collateral_amount,
	outputs, initiated_at`

func (s *SQLiteStore) Get(orderHash common.Hash) (*types.ActiveSettlement, error) {
	row := s.db.QueryRow(`SELECT `+settlementColumns+` FROM settlements WHERE order_hash = ?`, orderHash.Hex())
	record, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(types.ErrSettlementNotFound, "order %s", orderHash.Hex())
	}
	return record, err
}

func (s *SQLiteStore) Put(record *types.ActiveSettlement) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM settlements WHERE order_hash = ?`, record.OrderHash.Hex()).Scan(&one)
	switch {
	case err == nil:
		return errors.Wrapf(types.ErrSettlementExists, "order %s", record.OrderHash.Hex())
	case !errors.Is(err, sql.ErrNoRows):
		return errors.Wrap(err, "check settlement existence")
	}

	args, err := settlementArgs(record)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO settlements (`+settlementColumns+`, initiated_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append(args, record.InitiatedOn().String())...)
	return errors.Wrap(err, "insert settlement")
}

func (s *SQLiteStore) Update(record *types.ActiveSettlement) error {
	args, err := settlementArgs(record)
	if err != nil {
		return err
	}
	// Key first for the WHERE clause, remaining columns in declaration order.
	res, err := s.db.Exec(`
		UPDATE settlements SET
			status = ?, offerer = ?, origin_filler = ?, destination_filler = ?, challenger = ?, oracle = ?,
			fill_deadline = ?, optimistic_deadline = ?, challenge_deadline = ?,
			input_token = ?, input_amount = ?, input_max_amount = ?,
			collateral_token = ?, collateral_amount = ?,
			challenger_collateral_token = ?, challenger_collateral_amount = ?,
			outputs = ?, initiated_at = ?
		WHERE order_hash = ?
	`, append(args[1:], args[0])...)
	if err != nil {
		return errors.Wrap(err, "update settlement")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update settlement")
	}
	if affected == 0 {
		return errors.Wrapf(types.ErrSettlementNotFound, "order %s", record.OrderHash.Hex())
	}
	return nil
}

func (s *SQLiteStore) List(input types.ListSettlementsInput) ([]*types.ActiveSettlement, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	limit := defaultListLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	offset := 0
	if input.Offset != nil {
		offset = *input.Offset
	}

	query := `SELECT ` + settlementColumns + ` FROM settlements`
	var clauses []string
	var args []any
	if input.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*input.Status))
	}
	if input.Offerer != nil {
		clauses = append(clauses, "offerer = ?")
		args = append(args, input.Offerer.Address())
	}
	if input.InitiatedOn != nil {
		clauses = append(clauses, "initiated_on = ?")
		args = append(args, input.InitiatedOn.String())
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY initiated_at DESC, order_hash DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list settlements")
	}
	defer rows.Close()

	var out []*types.ActiveSettlement
	for rows.Next() {
		record, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, errors.Wrap(rows.Err(), "list settlements")
}

func (s *SQLiteStore) Close() error {
	return errors.Wrap(s.db.Close(), "close settlement database")
}

// settlementArgs flattens a record into the settlementColumns order.
func settlementArgs(record *types.ActiveSettlement) ([]any, error) {
	outputs, err := json.Marshal(record.Outputs)
	if err != nil {
		return nil, errors.Wrap(err, "encode settlement outputs")
	}
	challenger := ""
	if !record.Challenger.IsZero() {
		challenger = record.Challenger.Address()
	}
	ccToken := util.TransformOrNil(record.ChallengerCollateral, func(c types.Collateral) any { return c.Token.Address() })
	ccAmount := util.TransformOrNil(record.ChallengerCollateral, func(c types.Collateral) any { return c.Amount.String() })
	return []any{
		record.OrderHash.Hex(),
		string(record.Status),
		record.Offerer.Address(),
		record.OriginFiller.Address(),
		record.DestinationFiller.Address(),
		challenger,
		record.Oracle.Address(),
		record.FillDeadline,
		record.OptimisticDeadline,
		record.ChallengeDeadline,
		record.Input.Token.Address(),
		record.Input.Amount.String(),
		record.Input.MaxAmount.String(),
		record.FillerCollateral.Token.Address(),
		record.FillerCollateral.Amount.String(),
		ccToken,
		ccAmount,
		string(outputs),
		record.InitiatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*types.ActiveSettlement, error) {
	var (
		orderHash, status                                    string
		offerer, originFiller, destinationFiller, challenger string
		oracle                                               string
		fillDeadline, optimisticDeadline, challengeDeadline  int64
		inputToken, inputAmount, inputMaxAmount              string
		collateralToken, collateralAmount                    string
		ccToken, ccAmount                                    sql.NullString
		outputsJSON                                          string
		initiatedAt                                          int64
	)
	err := row.Scan(
		&orderHash, &status, &offerer, &originFiller, &destinationFiller, &challenger, &oracle,
		&fillDeadline, &optimisticDeadline, &challengeDeadline,
		&inputToken, &inputAmount, &inputMaxAmount,
		&collateralToken, &collateralAmount,
		&ccToken, &ccAmount,
		&outputsJSON, &initiatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan settlement row")
	}

	record := &types.ActiveSettlement{
		OrderHash:          common.HexToHash(orderHash),
		Status:             types.SettlementStatus(status),
		FillDeadline:       fillDeadline,
		OptimisticDeadline: optimisticDeadline,
		ChallengeDeadline:  challengeDeadline,
		InitiatedAt:        initiatedAt,
	}
	if record.Offerer, err = parseStoredAddress(offerer); err != nil {
		return nil, err
	}
	if record.OriginFiller, err = parseStoredAddress(originFiller); err != nil {
		return nil, err
	}
	if record.DestinationFiller, err = parseStoredAddress(destinationFiller); err != nil {
		return nil, err
	}
	if record.Challenger, err = parseStoredAddress(challenger); err != nil {
		return nil, err
	}
	if record.Oracle, err = parseStoredAddress(oracle); err != nil {
		return nil, err
	}
	if record.Input.Token, err = parseStoredAddress(inputToken); err != nil {
		return nil, err
	}
	if record.Input.Amount, err = parseStoredAmount(inputAmount); err != nil {
		return nil, err
	}
	if record.Input.MaxAmount, err = parseStoredAmount(inputMaxAmount); err != nil {
		return nil, err
	}
	if record.FillerCollateral.Token, err = parseStoredAddress(collateralToken); err != nil {
		return nil, err
	}
	if record.FillerCollateral.Amount, err = parseStoredAmount(collateralAmount); err != nil {
		return nil, err
	}
	if ccToken.Valid {
		cc := &types.Collateral{}
		if cc.Token, err = parseStoredAddress(ccToken.String); err != nil {
			return nil, err
		}
		if cc.Amount, err = parseStoredAmount(ccAmount.String); err != nil {
			return nil, err
		}
		record.ChallengerCollateral = cc
	}
	if err := json.Unmarshal([]byte(outputsJSON), &record.Outputs); err != nil {
		return nil, errors.Wrap(err, "decode settlement outputs")
	}
	return record, nil
}

// parseStoredAddress treats the empty string as the zero address, matching
// how unset identities are written.
func parseStoredAddress(s string) (util.EthereumAddress, error) {
	if s == "" {
		return util.EthereumAddress{}, nil
	}
	return util.NewEthereumAddressFromString(s)
}

func parseStoredAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("malformed stored amount %q", s)
	}
	return v, nil
}
