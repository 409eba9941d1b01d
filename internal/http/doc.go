// Package http exposes the Galera do Vôlei REST API.
//
// The router exposes the following endpoints (a trailing slash is accepted
// on every path):
//   - GET /: welcome message. GET /healthz: store reachability.
//   - POST /auth/login: body {"email","senha"}. Response
//     {"access_token","token_type":"bearer","expires_at"}; 401 on bad credentials.
//   - POST /auth/forgot-password, POST /auth/reset-password: password recovery;
//     both answer {"mensagem"}.
//   - POST /jogadores: registration with an invitation token ("token_convite").
//   - GET|PUT /jogadores/me, POST /jogadores/me/change-password: the caller's
//     own profile. GET /jogadores/{id}: public profile {"id","nome"}.
//   - POST /convites, GET /convites/me: invitations sent by the caller.
//   - POST /locais, GET /locais?cidade=, GET /locais/{id}: venue catalog.
//   - POST /partidas, GET /partidas?cidade=&data=AAAA-MM-DD&status=,
//     GET|PUT /partidas/{id}: matches.
//   - POST|GET /partidas/{id}/inscricoes, PUT /partidas/{id}/inscricoes/{eid},
//     DELETE /partidas/{id}/inscricoes/me: enrollments.
//
// Authenticated routes expect "Authorization: Bearer <token>". Errors share
// the body {"error_code","message","errors"?,"request_id"?}.
//
// Request/response DTOs live alongside their respective handlers.
package http
