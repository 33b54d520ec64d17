package cli

import (
	"fmt"
	"strconv"
	"strings"

	"litebridge/models"

	"github.com/goccy/go-json"
)

// listArgs are the parsed arguments of `sample list`
type listArgs struct {
	Page     int
	PageSize int
	Order    string
}

// parseListArgs parses `sample list` arguments.
//
// Supported flags:
// - --order <column> / --order=<column> (prefix '-' for descending)
// - --size <n> / --size=<n>
//
// The last argument may be a page number.
func parseListArgs(args []string) (listArgs, error) {
	parsed := listArgs{Page: 1, PageSize: 20}

	if len(args) > 0 {
		if p, err := strconv.Atoi(args[len(args)-1]); err == nil {
			parsed.Page = p
			args = args[:len(args)-1]
		}
	}
	if parsed.Page < 1 {
		parsed.Page = 1
	}

	for i := 0; i < len(args); i++ {
		token := args[i]
		if !strings.HasPrefix(token, "--") {
			return listArgs{}, fmt.Errorf("unexpected argument: %s", token)
		}

		name, value, inline := strings.Cut(token, "=")
		if !inline {
			if i+1 >= len(args) {
				return listArgs{}, fmt.Errorf("missing value for %s", name)
			}
			value = args[i+1]
			i++
		}
		if err := applyListFlag(&parsed, name, strings.TrimSpace(value)); err != nil {
			return listArgs{}, err
		}
	}
	return parsed, nil
}

func applyListFlag(parsed *listArgs, name, value string) error {
	switch name {
	case "--order":
		if strings.TrimPrefix(value, "-") == "" {
			return fmt.Errorf("invalid --order: empty")
		}
		parsed.Order = value
		return nil
	case "--size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid --size: %q", value)
		}
		parsed.PageSize = n
		return nil
	default:
		return fmt.Errorf("unknown flag: %s", name)
	}
}

// parseAssignments turns `column=value` pairs into an update request.
// The literal null clears a nullable column.
func parseAssignments(args []string) (models.SampleUpdate, error) {
	var req models.SampleUpdate
	if len(args) == 0 {
		return req, fmt.Errorf("missing column=value pairs")
	}

	for _, arg := range args {
		column, value, found := strings.Cut(arg, "=")
		column = strings.ToLower(strings.TrimSpace(column))
		if !found || column == "" {
			return req, fmt.Errorf("invalid assignment: %s", arg)
		}

		switch column {
		case "description":
			if value == "null" {
				req.Values.Description = nil
			} else {
				v := value
				req.Values.Description = &v
			}
		case "note":
			req.Values.Note = value
		case "multi_unique_part1", "multi_unique_part2":
			n, err := parseNullableInt(value)
			if err != nil {
				return req, fmt.Errorf("invalid %s: %w", column, err)
			}
			if column == "multi_unique_part1" {
				req.Values.MultiUniquePart1 = n
			} else {
				req.Values.MultiUniquePart2 = n
			}
		case "my_class":
			if value != "null" {
				var customer models.Customer
				if err := json.Unmarshal([]byte(value), &customer); err != nil {
					return req, fmt.Errorf("invalid my_class: %w", err)
				}
				req.Values.MyClass = &customer
			}
		default:
			return req, fmt.Errorf("unknown column: %s", column)
		}
		req.Columns = append(req.Columns, column)
	}
	return req, nil
}

func parseNullableInt(value string) (*int64, error) {
	if value == "null" {
		return nil, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
