package response

// SuccessResponse representa uma resposta de sucesso da API
type SuccessResponse struct {
	Message string `json:"message" example:"Operação realizada com sucesso"`
}

// ErrorResponse representa uma resposta de erro da API
type ErrorResponse struct {
	// Código do erro para tratamento programático
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Mensagem legível exibida ao usuário
	// example: Erro de validação dos dados
	Message string `json:"message"`

	// Detalhes adicionais do erro (opcional)
	// example: o campo phone é obrigatório
	Details string `json:"details,omitempty"`
}

// TokenResponse representa a resposta com os tokens de autenticação
type TokenResponse struct {
	// JWT de acesso ao painel do admin
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// JWT para renovar o access token
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}
