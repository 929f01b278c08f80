package queue

import "gorm.io/gorm"

// claimOnce aplica um UPDATE condicional: as mudanças só entram se a linha
// ainda satisfaz as condições esperadas. Devolve true quando este chamador
// venceu a disputa (exatamente uma linha afetada). É a primitiva usada tanto
// pela trava do "quase lá" quanto pelas transições terminais dos chamados,
// garantindo no máximo uma execução sob concorrência.
func claimOnce(db *gorm.DB, model interface{}, id uint, expect map[string]interface{}, updates map[string]interface{}) (bool, error) {
	q := db.Model(model).Where("id = ?", id)
	for column, value := range expect {
		q = q.Where(column+" = ?", value)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
