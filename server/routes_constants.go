package server

const (
	RouteAuthRegister = "/auth/register"
	RouteAuthLogin    = "/auth/login"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthLogout   = "/auth/logout"

	RouteTodos        = "/todos"
	RouteTodoByID     = "/todos/{id}"
	RouteTodosReorder = "/todos/reorder"

	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"
)
