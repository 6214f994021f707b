package dataset

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"nmescli/pkg/contracts/domain"
)

// requiredColumns must all be present in the header row for a sheet to be
// accepted as the study table.
var requiredColumns = []string{"subject", "group", "time"}

// LoadWorkbook reads the study workbook and extracts the observation table.
func LoadWorkbook(path string) (*domain.ObservationTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, sheetName, err := findDataSheet(f)
	if err != nil {
		return nil, err
	}

	slog.Info("Found study data sheet",
		slog.String("sheet_name", sheetName),
		slog.Int("total_rows", len(rows)))

	headerRow, columnMap := mapColumns(rows)
	if headerRow == -1 {
		return nil, fmt.Errorf("could not find header row in sheet %s", sheetName)
	}

	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("could not find required column: %s", col)
		}
	}

	table := &domain.ObservationTable{}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]

		if isBlankRow(row) {
			continue
		}

		obs, err := parseRow(row, columnMap)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		table.Rows = append(table.Rows, obs)
	}

	slog.Info("Workbook loaded",
		slog.String("path", path),
		slog.Int("observations", len(table.Rows)),
		slog.Int("subjects", len(table.Subjects())))

	return table, nil
}

// findDataSheet locates the sheet holding the observation table. It tries
// common sheet names first, then falls back to scanning every sheet for the
// required header columns.
func findDataSheet(f *excelize.File) ([][]string, string, error) {
	possibleNames := []string{"NMES", "Data", "data", "Sheet1"}

	for _, name := range possibleNames {
		if rows, err := f.GetRows(name); err == nil && hasHeader(rows) {
			return rows, name, nil
		}
	}

	for _, name := range f.GetSheetList() {
		if rows, err := f.GetRows(name); err == nil && hasHeader(rows) {
			return rows, name, nil
		}
	}

	return nil, "", fmt.Errorf("could not find study data sheet in workbook")
}

// hasHeader reports whether any of the first few rows looks like the study
// header (contains subject, group and time columns).
func hasHeader(rows [][]string) bool {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for _, row := range rows[:limit] {
		rowText := strings.ToLower(strings.Join(row, " "))
		found := 0
		for _, col := range requiredColumns {
			if strings.Contains(rowText, col) {
				found++
			}
		}
		if found == len(requiredColumns) {
			return true
		}
	}
	return false
}

// headerAliases maps normalized workbook header spellings to canonical
// column names. Headers are matched after lower-casing and stripping
// spaces, underscores and hyphens.
var headerAliases = map[string]string{
	"subject":                "Subject",
	"subjectid":              "Subject",
	"id":                     "Subject",
	"group":                  "Group",
	"time":                   "Time",
	"age":                    "Age",
	"sex":                    "Sex",
	"education":              "Education",
	"educationyears":         "Education",
	"bmi":                    "BMI",
	"handedness":             "Handedness",
	"6mwt":                   "SixMWT",
	"sixmwt":                 "SixMWT",
	"5xsts":                  "FiveXSTS",
	"fivexsts":               "FiveXSTS",
	"tinetti":                "Tinetti",
	"tugdt":                  "TUGDT",
	"srt":                    "SRT",
	"accuracy":               "Accuracy",
	"gngrt":                  "GNGRT",
	"gonogort":               "GNGRT",
	"switcherrors":           "SwitchErrors",
	"affectiveattitude":      "AffectiveAttitude",
	"burden":                 "Burden",
	"ethicality":             "Ethicality",
	"interventioncoherence":  "InterventionCoherence",
	"opportunitycost":        "OpportunityCost",
	"perceivedeffectiveness": "PerceivedEffectiveness",
	"selfefficacy":           "SelfEfficacy",
	"generalacceptability":   "GeneralAcceptability",
	"acceptability":          "Acceptability",
}

// mapColumns finds the header row and maps canonical column names to
// positions. Unknown headers are logged and skipped.
func mapColumns(rows [][]string) (int, map[string]int) {
	for i, row := range rows {
		if len(row) < len(requiredColumns) {
			continue
		}

		rowText := strings.ToLower(strings.Join(row, " "))
		found := 0
		for _, col := range requiredColumns {
			if strings.Contains(rowText, col) {
				found++
			}
		}
		if found < len(requiredColumns) {
			continue
		}

		columnMap := make(map[string]int)
		for j, header := range row {
			key := normalizeHeader(header)
			if key == "" {
				continue
			}
			canonical, known := headerAliases[key]
			if !known {
				slog.Debug("Skipping unknown column",
					slog.String("header", header),
					slog.Int("index", j))
				continue
			}
			// Required columns are matched lower-case in columnMap keys
			// so the caller can verify them uniformly.
			columnMap[strings.ToLower(canonical)] = j
		}
		return i, columnMap
	}
	return -1, nil
}

// normalizeHeader lower-cases a header cell and strips separators.
func normalizeHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// isBlankRow reports whether every cell in the row is empty.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRow converts one sheet row into an Observation.
func parseRow(row []string, columnMap map[string]int) (domain.Observation, error) {
	getString := func(colName string) string {
		if idx, exists := columnMap[colName]; exists && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	// Missing or unparseable numeric cells become NaN; the statistical
	// stages treat NaN as missing.
	parseFloat := func(colName string) float64 {
		if idx, exists := columnMap[colName]; exists && idx < len(row) {
			cell := strings.ReplaceAll(strings.TrimSpace(row[idx]), ",", "")
			if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
				return math.NaN()
			}
			val, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return math.NaN()
			}
			return val
		}
		return math.NaN()
	}

	subject := getString("subject")
	if subject == "" {
		return domain.Observation{}, fmt.Errorf("empty subject identifier")
	}

	group, err := domain.ParseGroup(getString("group"))
	if err != nil {
		return domain.Observation{}, err
	}

	tp, err := domain.ParseTimepoint(getString("time"))
	if err != nil {
		return domain.Observation{}, err
	}

	sex, err := domain.ParseSex(getString("sex"))
	if err != nil {
		return domain.Observation{}, err
	}

	hand, err := domain.ParseHandedness(getString("handedness"))
	if err != nil {
		return domain.Observation{}, err
	}

	return domain.Observation{
		Subject:    subject,
		Group:      group,
		Time:       tp,
		Age:        parseFloat("age"),
		Sex:        sex,
		Education:  parseFloat("education"),
		BMI:        parseFloat("bmi"),
		Handedness: hand,

		SixMWT:   parseFloat("sixmwt"),
		FiveXSTS: parseFloat("fivexsts"),
		Tinetti:  parseFloat("tinetti"),
		TUGDT:    parseFloat("tugdt"),

		SRT:          parseFloat("srt"),
		Accuracy:     parseFloat("accuracy"),
		GNGRT:        parseFloat("gngrt"),
		SwitchErrors: parseFloat("switcherrors"),

		AffectiveAttitude:      parseFloat("affectiveattitude"),
		Burden:                 parseFloat("burden"),
		Ethicality:             parseFloat("ethicality"),
		InterventionCoherence:  parseFloat("interventioncoherence"),
		OpportunityCost:        parseFloat("opportunitycost"),
		PerceivedEffectiveness: parseFloat("perceivedeffectiveness"),
		SelfEfficacy:           parseFloat("selfefficacy"),
		GeneralAcceptability:   parseFloat("generalacceptability"),
		Acceptability:          parseFloat("acceptability"),
	}, nil
}
