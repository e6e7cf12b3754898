package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/pkg/errors"
)

// CSVHeader is the first line of every table written by WriteCSV
var CSVHeader = []string{"particle", "frame", "x", "y", "mass", "size", "ecc"}

// WriteCSV writes trajectory table with header
func WriteCSV(w io.Writer, rows []ptrack.Row) error {
	writer := csv.NewWriter(w)
	err := writer.Write(CSVHeader)
	if err != nil {
		return errors.Wrap(err, "can't write header")
	}
	record := make([]string, len(CSVHeader))
	for i, row := range rows {
		record[0] = strconv.Itoa(row.TrajectoryID)
		record[1] = strconv.Itoa(row.Frame)
		record[2] = formatFloat(row.X)
		record[3] = formatFloat(row.Y)
		record[4] = formatFloat(row.Mass)
		record[5] = formatFloat(row.Size)
		record[6] = formatFloat(row.Ecc)
		err = writer.Write(record)
		if err != nil {
			return errors.Wrapf(err, "can't write row %d", i)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV reads table written by WriteCSV
func ReadCSV(r io.Reader) ([]ptrack.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "can't read header")
	}
	for i := range CSVHeader {
		if header[i] != CSVHeader[i] {
			return nil, errors.Errorf("unexpected column %q at %d, expected %q", header[i], i, CSVHeader[i])
		}
	}
	rows := make([]ptrack.Row, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "can't read line %d", line)
		}
		row, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "bad line %d", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string) (ptrack.Row, error) {
	row := ptrack.Row{}
	var err error
	if row.TrajectoryID, err = strconv.Atoi(record[0]); err != nil {
		return row, err
	}
	if row.Frame, err = strconv.Atoi(record[1]); err != nil {
		return row, err
	}
	floats := []*float64{&row.X, &row.Y, &row.Mass, &row.Size, &row.Ecc}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(record[i+2], 64); err != nil {
			return row, err
		}
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
