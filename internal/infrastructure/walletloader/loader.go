package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// AccountFileLoader reads account lists for `account import`: one address per line,
// optionally followed by an alias. Blank lines and lines starting with # are ignored.
type AccountFileLoader struct {
	loggerInfo func(msg string, args ...any)
}

// NewAccountFileLoader creates a new AccountFileLoader.
func NewAccountFileLoader(loggerInfo func(msg string, args ...any)) *AccountFileLoader {
	return &AccountFileLoader{loggerInfo: loggerInfo}
}

// LoadAccounts returns the accounts of a family listed in path, addresses normalized by the adapter.
// Malformed lines are skipped and counted.
func (l *AccountFileLoader) LoadAccounts(path string, family entity.ChainFamily, adapter port.ChainAdapter) ([]entity.Account, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open account file %s: %w", path, err)
	}
	defer file.Close()

	var accounts []entity.Account
	skipped := 0
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 2 {
			l.info("Skipping malformed account line", "file", path, "line_number", lineNum)
			skipped++
			continue
		}
		addr, err := adapter.NormalizeAddress(fields[0])
		if err != nil {
			l.info("Skipping invalid account address", "file", path, "line_number", lineNum, "address", fields[0])
			skipped++
			continue
		}
		acc := entity.Account{Family: family, Address: addr}
		if len(fields) == 2 {
			if err := entity.ValidateAlias(fields[1]); err != nil {
				l.info("Skipping account with invalid alias", "file", path, "line_number", lineNum, "alias", fields[1])
				skipped++
				continue
			}
			acc.Alias = fields[1]
		}
		accounts = append(accounts, acc)
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("error scanning account file %s: %w", path, err)
	}

	l.info("Accounts loaded successfully from file", "count", len(accounts), "skipped", skipped, "path", path)
	return accounts, skipped, nil
}

func (l *AccountFileLoader) info(msg string, args ...any) {
	if l.loggerInfo != nil {
		l.loggerInfo(msg, args...)
	}
}
