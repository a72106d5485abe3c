package plc

import (
	"fmt"
	"strconv"
	"time"
)

// ComoEntero convierte un valor leído desde OPC UA a int. Los PLCs de planta
// exponen los estados como int16/int32/uint8 según el modelo.
func ComoEntero(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("no se puede convertir string '%s' a entero: %w", v, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("no se puede convertir %T a entero", value)
	}
}

// ComoFlotante convierte un valor leído desde OPC UA a float64. Los contadores
// de producción llegan como float32 o enteros según la marca del PLC.
func ComoFlotante(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("no se puede convertir string '%s' a flotante: %w", v, err)
		}
		return parsed, nil
	default:
		entero, err := ComoEntero(value)
		if err != nil {
			return 0, fmt.Errorf("no se puede convertir %T a flotante", value)
		}
		return float64(entero), nil
	}
}

// ComoTiempo interpreta el nodo de reserva: epoch en segundos, o cero si la
// máquina no tiene reserva vigente.
func ComoTiempo(value interface{}) (time.Time, error) {
	if t, ok := value.(time.Time); ok {
		return t, nil
	}

	epoch, err := ComoEntero(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("no se puede interpretar %T como epoch: %w", value, err)
	}
	if epoch <= 0 {
		return time.Time{}, nil
	}
	return time.Unix(int64(epoch), 0).In(time.Local), nil
}

// ConvertValueForWrite convierte un valor de Go al tipo apropiado para
// escritura OPC UA según el tipo de datos declarado del nodo.
func ConvertValueForWrite(value interface{}, dataType string) (interface{}, error) {
	switch dataType {
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case int:
			return v != 0, nil
		case string:
			return v == "true" || v == "1", nil
		default:
			return nil, fmt.Errorf("no se puede convertir %T a bool para escritura", value)
		}

	case "int16":
		entero, err := ComoEntero(value)
		if err != nil {
			return nil, fmt.Errorf("no se puede convertir %T a int16 para escritura", value)
		}
		return int16(entero), nil

	case "int32":
		entero, err := ComoEntero(value)
		if err != nil {
			return nil, fmt.Errorf("no se puede convertir %T a int32 para escritura", value)
		}
		return int32(entero), nil

	case "uint16":
		entero, err := ComoEntero(value)
		if err != nil {
			return nil, fmt.Errorf("no se puede convertir %T a uint16 para escritura", value)
		}
		return uint16(entero), nil

	case "uint32":
		entero, err := ComoEntero(value)
		if err != nil {
			return nil, fmt.Errorf("no se puede convertir %T a uint32 para escritura", value)
		}
		return uint32(entero), nil

	case "float32":
		flotante, err := ComoFlotante(value)
		if err != nil {
			return nil, fmt.Errorf("no se puede convertir %T a float32 para escritura", value)
		}
		return float32(flotante), nil

	case "float64":
		return ComoFlotante(value)

	case "string":
		return fmt.Sprintf("%v", value), nil

	default:
		// Para tipos no reconocidos, intentar devolver el valor tal como está
		return value, nil
	}
}
