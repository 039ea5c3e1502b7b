// Package colfile implementa o formato colunar binário usado pelas tabelas.
//
// Layout (little-endian):
//
//	[magic "FDC1": 4 bytes][colCount: uint16][rowCount: uint32]
//	diretório, por coluna: [nameLen: uint16][name][type: 1 byte]
//	dados, na ordem do diretório:
//	  utf8:  por linha [len: uint32][bytes]
//	  int32: rowCount * 4 bytes
//	  bool:  rowCount * 1 byte (0/1)
//
// O buffer inteiro é decodificado em memória; decodificar duas vezes o mesmo
// buffer produz as mesmas linhas na mesma ordem.
package colfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

var magic = [4]byte{'F', 'D', 'C', '1'}

type Type uint8

const (
	TypeString Type = iota
	TypeInt32
	TypeBool
)

type Column struct {
	Name string
	Type Type
}

// Schema é a lista ordenada de colunas; a ordem define o layout físico.
type Schema []Column

// Row mapeia nome de coluna para string, int32 ou bool.
type Row map[string]any

// File é o resultado de um Decode: schema mais todas as linhas, já em memória.
type File struct {
	Schema Schema
	Rows   []Row
}

// Encode serializa o conjunto completo de linhas conforme o schema.
// Valor ausente vira zero da coluna; tipo errado é erro do caller.
func Encode(schema Schema, rows []Row) ([]byte, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("colfile: schema vazio")
	}
	if len(schema) > math.MaxUint16 {
		return nil, fmt.Errorf("colfile: %d colunas excede o limite", len(schema))
	}
	if len(rows) > math.MaxUint32 {
		return nil, fmt.Errorf("colfile: %d linhas excede o limite", len(rows))
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(schema))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(rows))); err != nil {
		return nil, err
	}

	for _, col := range schema {
		if len(col.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("colfile: nome de coluna grande demais")
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(len(col.Name)))
		buf.WriteString(col.Name)
		buf.WriteByte(byte(col.Type))
	}

	for _, col := range schema {
		for i, row := range rows {
			v, ok := row[col.Name]
			switch col.Type {
			case TypeString:
				s := ""
				if ok {
					s, ok = v.(string)
					if !ok {
						return nil, typeErr(col, i, v)
					}
				}
				_ = binary.Write(&buf, binary.LittleEndian, uint32(len(s)))
				buf.WriteString(s)
			case TypeInt32:
				var n int32
				if ok {
					n, ok = v.(int32)
					if !ok {
						return nil, typeErr(col, i, v)
					}
				}
				_ = binary.Write(&buf, binary.LittleEndian, n)
			case TypeBool:
				b := false
				if ok {
					b, ok = v.(bool)
					if !ok {
						return nil, typeErr(col, i, v)
					}
				}
				if b {
					buf.WriteByte(1)
				} else {
					buf.WriteByte(0)
				}
			default:
				return nil, fmt.Errorf("colfile: tipo de coluna desconhecido %d", col.Type)
			}
		}
	}

	return buf.Bytes(), nil
}

func typeErr(col Column, row int, v any) error {
	return fmt.Errorf("colfile: coluna %q linha %d: valor %T incompatível", col.Name, row, v)
}

// Decode reconstrói schema e linhas a partir de um buffer completo.
func Decode(data []byte) (*File, error) {
	r := &reader{data: data}

	head, err := r.take(4)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(head, magic[:]) {
		return nil, fmt.Errorf("colfile: magic inválido %q", head)
	}

	colCount, err := r.uint16()
	if err != nil {
		return nil, err
	}
	rowCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if colCount == 0 {
		return nil, fmt.Errorf("colfile: buffer sem colunas")
	}

	schema := make(Schema, 0, colCount)
	for i := 0; i < int(colCount); i++ {
		nameLen, err := r.uint16()
		if err != nil {
			return nil, err
		}
		name, err := r.take(int(nameLen))
		if err != nil {
			return nil, err
		}
		t, err := r.byte()
		if err != nil {
			return nil, err
		}
		if Type(t) > TypeBool {
			return nil, fmt.Errorf("colfile: coluna %q com tipo desconhecido %d", name, t)
		}
		schema = append(schema, Column{Name: string(name), Type: Type(t)})
	}

	rows := make([]Row, rowCount)
	for i := range rows {
		rows[i] = make(Row, colCount)
	}

	for _, col := range schema {
		for i := 0; i < int(rowCount); i++ {
			switch col.Type {
			case TypeString:
				n, err := r.uint32()
				if err != nil {
					return nil, err
				}
				b, err := r.take(int(n))
				if err != nil {
					return nil, err
				}
				rows[i][col.Name] = string(b)
			case TypeInt32:
				n, err := r.uint32()
				if err != nil {
					return nil, err
				}
				rows[i][col.Name] = int32(n)
			case TypeBool:
				b, err := r.byte()
				if err != nil {
					return nil, err
				}
				rows[i][col.Name] = b != 0
			}
		}
	}

	return &File{Schema: schema, Rows: rows}, nil
}

// reader percorre o buffer com checagem de limites; buffers truncados
// produzem erro, nunca panic.
type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("colfile: buffer truncado no offset %d", r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
