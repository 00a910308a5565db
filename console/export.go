// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package console

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type exportQuery struct {
	Hours  float64 `form:"hours,default=24" binding:"min=0.1,max=8760"`
	Format string  `form:"format,default=json" binding:"oneof=json csv"`
	Limit  int     `form:"limit,default=10000" binding:"min=1,max=10000"`
}

func (c *Component) exportClientsHandlerFunc(gc *gin.Context) {
	var input exportQuery
	if err := gc.ShouldBindQuery(&input); err != nil {
		badRequest(gc, err)
		return
	}
	rows, err := c.d.Storage.ExportClients(gc.Request.Context(), c.since(input.Hours), input.Limit)
	if !c.storageQuery(gc, "export-clients", err) {
		return
	}
	if input.Format == "csv" {
		c.csvResponse(gc, "clients", rows)
		return
	}
	gc.JSON(http.StatusOK, rows)
}

func (c *Component) exportWANHandlerFunc(gc *gin.Context) {
	var input exportQuery
	if err := gc.ShouldBindQuery(&input); err != nil {
		badRequest(gc, err)
		return
	}
	rows, err := c.d.Storage.ExportWAN(gc.Request.Context(), c.since(input.Hours), input.Limit)
	if !c.storageQuery(gc, "export-wan", err) {
		return
	}
	if input.Format == "csv" {
		c.csvResponse(gc, "wan", rows)
		return
	}
	gc.JSON(http.StatusOK, rows)
}

// csvResponse sends rows as a CSV attachment. Columns are the JSON names
// of the row fields.
func (c *Component) csvResponse(gc *gin.Context, name string, rows interface{}) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	value := reflect.ValueOf(rows)
	if value.Len() == 0 {
		w.Write([]string{"no data"})
	} else {
		rowType := value.Type().Elem()
		header := []string{}
		fields := []int{}
		for i := range rowType.NumField() {
			tag, _, _ := strings.Cut(rowType.Field(i).Tag.Get("json"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			header = append(header, tag)
			fields = append(fields, i)
		}
		w.Write(header)
		record := make([]string, len(fields))
		for i := range value.Len() {
			row := value.Index(i)
			for j, field := range fields {
				record[j] = csvValue(row.Field(field).Interface())
			}
			w.Write(record)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		c.r.Err(err).Str("export", name).Msg("unable to build CSV")
		gc.JSON(http.StatusInternalServerError, gin.H{"message": "Unable to build CSV."})
		return
	}
	gc.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	gc.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func csvValue(v interface{}) string {
	switch v := v.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}
