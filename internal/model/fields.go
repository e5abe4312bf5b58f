package model

// Record field names shared by the ledger and the record store.
const (
	FieldName      = "NOMBRE"
	FieldSurname1  = "APELLIDO1"
	FieldSurname2  = "APELLIDO2"
	FieldRole      = "TIPO"
	FieldCharacter = "PERSONAJE"

	FieldReference   = "REFERENCIA"
	FieldTitle       = "DENOMINACIÓN"
	FieldProfession  = "PROFESIÓN"
	FieldAccount     = "CUENTA"
	FieldParticipant = "PARTICIPANTE"

	FieldSalary         = "SALARIO"
	FieldSpouseSalary   = "SALARIO-CÓNYUGE"
	FieldDependents     = "HIJOS"
	FieldCardDebt       = "DEUDA-TARJETA-CRÉDITO"
	FieldMinCardPayment = "PAGO-MÍNIMO-TARJETA-CRÉDITO"

	FieldAccountType   = "TIPO-CUENTA"
	FieldAccountNumber = "NÚMERO-CUENTA"
	FieldMovements     = "MOVIMIENTO"
	FieldBalance       = "SALDO"

	FieldConcept         = "CONCEPTO"
	FieldMethod          = "MEDIO"
	FieldAmount          = "IMPORTE"
	FieldOverride        = "IMPORTE-PARTICULAR"
	FieldSameWeek        = "MISMA-SEMANA"
	FieldSizeClass       = "GESTIÓN"
	FieldFrequency       = "FRECUENCIA"
	FieldElapsed         = "TIEMPO-DESDE-MOVIMIENTO"
	FieldConceptLiteral  = "CONCEPTO-LITERAL"
	FieldMerchantLiteral = "MERCADER"
	FieldDate            = "FECHA"

	FieldProductKey     = "PRODUCTO-SERVICIO"
	FieldMerchant       = "COMERCIO"
	FieldPrice          = "PRECIO"
	FieldExtraMonthly   = "OTROS-GASTOS-MENSUALES"
	FieldPeriodic       = "PERIÓDICO"
	FieldRules          = "REGLAS"
	FieldMerchantOffers = "PRODUCTOS-SERVICIOS"
)
