// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 利用者向けの文言は店舗の利用言語（スペイン語）で記述する。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, catalog, cart, order, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // フィールド単位のバリデーションエラー（field -> code）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailExists        = "EMAIL_EXISTS"
	ErrCodePhoneExists        = "PHONE_EXISTS"
	ErrCodeProfileLoadFailed  = "PROFILE_LOAD_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidStatus      = "INVALID_ORDER_STATUS"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeOutOfStock         = "OUT_OF_STOCK"
	ErrCodeInvalidImage       = "INVALID_IMAGE"
	ErrCodeImageFetchFailed   = "IMAGE_FETCH_FAILED"
	ErrCodeSSRFBlocked        = "SSRF_BLOCKED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewValidationError はフォーム入力のバリデーションエラーを生成する。
// fieldsにはフィールド名とエラーコードの組を渡す。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "Algunos campos no son válidos.",
		Category: "validation",
		Action:   "Revisa los campos marcados e inténtalo de nuevo.",
		Fields:   fields,
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Credenciales incorrectas. Por favor intenta de nuevo.",
		Category: "auth",
		Action:   "Verifica tu correo y contraseña.",
	}
}

// NewEmailExistsError はメールアドレス重複エラーを生成する。
func NewEmailExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailExists,
		Message:  "Este correo ya está registrado.",
		Category: "auth",
		Action:   "Inicia sesión o usa otro correo.",
		Fields:   map[string]string{"email": "emailDuplicado"},
	}
}

// NewPhoneExistsError は電話番号重複エラーを生成する。
func NewPhoneExistsError() *APIError {
	return &APIError{
		Code:     ErrCodePhoneExists,
		Message:  "Este teléfono ya está registrado.",
		Category: "auth",
		Action:   "Usa otro número de teléfono.",
		Fields:   map[string]string{"phone": "telefonoDuplicado"},
	}
}

// NewProfileLoadFailedError はプロフィールの取得・作成に失敗した場合のエラーを生成する。
func NewProfileLoadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileLoadFailed,
		Message:  "No se pudo cargar el perfil.",
		Category: "auth",
		Action:   "Intenta iniciar sesión nuevamente en unos minutos.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Debes iniciar sesión.",
		Category: "auth",
		Action:   "Inicia sesión para continuar.",
	}
}

// NewForbiddenError はロール不一致エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "No tienes permiso para realizar esta acción.",
		Category: "auth",
		Action:   "Inicia sesión con una cuenta autorizada.",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("Producto no encontrado: %s", productID),
		Category: "catalog",
		Action:   "Actualiza el catálogo e inténtalo de nuevo.",
	}
}

// NewOrderNotFoundError は注文未検出エラーを生成する。
func NewOrderNotFoundError(orderID string) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("Pedido no encontrado: %s", orderID),
		Category: "order",
		Action:   "Verifica el número de pedido.",
	}
}

// NewInvalidStatusError は無効な注文ステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Estado de pedido no válido: %s", status),
		Category: "validation",
		Action:   "Usa pendiente, confirmado, entregado o cancelado.",
	}
}

// NewEmptyCartError はカートが空の状態で注文しようとした場合のエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "Tu carrito está vacío.",
		Category: "cart",
		Action:   "Agrega productos desde el catálogo.",
	}
}

// NewInvalidQuantityError は数量が不正な場合のエラーを生成する。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("Cantidad no válida: %d", quantity),
		Category: "validation",
		Action:   "Indica una cantidad mayor a cero.",
	}
}

// NewOutOfStockError は在庫を超える数量を指定した場合のエラーを生成する。
func NewOutOfStockError(productName string, stock int) *APIError {
	if stock <= 0 {
		return &APIError{
			Code:     ErrCodeOutOfStock,
			Message:  fmt.Sprintf("%s está agotado.", productName),
			Category: "cart",
			Action:   "Elige otro producto del catálogo.",
		}
	}
	return &APIError{
		Code:     ErrCodeOutOfStock,
		Message:  fmt.Sprintf("Solo quedan %d unidades de %s.", stock, productName),
		Category: "cart",
		Action:   "Reduce la cantidad en tu carrito.",
	}
}

// NewInvalidImageError は画像ファイルが不正な場合のエラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("Imagen no válida: %s", reason),
		Category: "validation",
		Action:   "Sube una imagen PNG, JPEG, GIF o WEBP de hasta 5 MB.",
	}
}

// NewImageFetchFailedError はリモート画像の取得失敗エラーを生成する。
func NewImageFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  fmt.Sprintf("No se pudo descargar la imagen: %s", reason),
		Category: "catalog",
		Action:   "Verifica la URL de la imagen o súbela desde tu equipo.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "La URL indicada no está permitida.",
		Category: "validation",
		Action:   "Usa la URL pública de la imagen.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuario no encontrado.",
		Category: "auth",
		Action:   "Inicia sesión nuevamente.",
	}
}
