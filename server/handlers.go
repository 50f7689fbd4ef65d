package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/sudarshan/carebuddy/server/auth"
	"github.com/sudarshan/carebuddy/server/auth/key"
	"github.com/sudarshan/carebuddy/server/models"
	"gorm.io/gorm"
)

const AUTH_TOKEN_TTL = 24 * time.Hour

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------------//
// Account handlers
// --------------------------------------------------------------------------------//

func signUp(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(user); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err := models.CreateUser(&user); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusCreated)
}

func logIn(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := models.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := models.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	isAdmin, err := user.IsAdmin()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	token, err := auth.EncodeJWT(auth.CareBuddyTokenClaims{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsAdmin:   isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(AUTH_TOKEN_TTL).Unix(),
		},
	}, authKeyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: map[string]interface{}{"token": token, "user": user}}, http.StatusOK)
}

func jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := authKeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

func healthCheck(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// User handlers
// --------------------------------------------------------------------------------//

func findUser(rw http.ResponseWriter, r *http.Request) {
	user, err := models.FindUserBy("id", mux.Vars(r)["uid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusOK)
}

func updateUser(rw http.ResponseWriter, r *http.Request) {
	var errs []string

	data := make(map[string]interface{})
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{
		"first_name": true, "last_name": true, "phone_number": true,
		"password": true, "blood_group": true,
	})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["password"] != nil && validate.Var(fmt.Sprintf("%v", data["password"]), "password") != nil {
		errs = append(errs, "password cannot be empty or contain spaces")
	}

	if data["phone_number"] != nil && validate.Var(fmt.Sprintf("%v", data["phone_number"]), "e164") != nil {
		errs = append(errs, "phone number must be in e164 format")
	}

	if len(errs) > 0 {
		writeResponse(rw, ResponsePayload{Errors: errs}, http.StatusBadRequest)
		return
	}

	user, err := models.FindUserBy("id", mux.Vars(r)["uid"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err := user.Update(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func deleteUser(rw http.ResponseWriter, r *http.Request) {
	if err := models.DeleteUser(mux.Vars(r)["uid"]); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func findUserContacts(rw http.ResponseWriter, r *http.Request) {
	user, err := findRequestUser(rw, r)
	if user == nil {
		return
	}

	if err = user.LoadContacts(); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user.Contacts}, http.StatusOK)
}

// replaceUserContacts swaps the user's whole emergency contact list for the
// submitted one, preserving submission order.
func replaceUserContacts(rw http.ResponseWriter, r *http.Request) {
	user, _ := findRequestUser(rw, r)
	if user == nil {
		return
	}

	contacts := []models.Contact{}
	if err := json.NewDecoder(r.Body).Decode(&contacts); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	for _, contact := range contacts {
		if errs := validate.Struct(contact); errs != nil {
			writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
			return
		}
	}

	if err := user.ReplaceContacts(contacts); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user.Contacts}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Routine handlers
// --------------------------------------------------------------------------------//

func findUserRoutines(rw http.ResponseWriter, r *http.Request) {
	routines, err := models.RoutinesForUser(mux.Vars(r)["uid"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: routines}, http.StatusOK)
}

func createUserRoutine(rw http.ResponseWriter, r *http.Request) {
	user, _ := findRequestUser(rw, r)
	if user == nil {
		return
	}

	routine := models.Routine{}
	if err := json.NewDecoder(r.Body).Decode(&routine); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}
	routine.UserID = user.ID

	if errs := validate.Struct(routine); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err := models.CreateRoutine(&routine); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: routine}, http.StatusCreated)
}

func updateUserRoutine(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	data := make(map[string]interface{})
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	removeUnknownFields(data, map[string]bool{"title": true, "time": true, "is_completed": true})
	if len(data) <= 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"valid fields required"}}, http.StatusBadRequest)
		return
	}

	if data["time"] != nil && validate.Var(fmt.Sprintf("%v", data["time"]), "time_stamp") != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"time must be in 24hr HH:MM format"}}, http.StatusBadRequest)
		return
	}

	routine, err := models.FindRoutine(vars["id"])
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if fmt.Sprint(routine.UserID) != vars["uid"] {
		writeResponse(rw, ResponsePayload{Errors: []string{"routine not found for user"}}, http.StatusNotFound)
		return
	}

	if err := routine.Update(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: routine}, http.StatusOK)
}

func deleteUserRoutine(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := models.DeleteRoutine(vars["id"], vars["uid"]); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Emergency & situational-data handlers
// --------------------------------------------------------------------------------//

func triggerEmergency(rw http.ResponseWriter, r *http.Request) {
	user := requestUser(rw, r)
	if user == nil {
		return
	}

	coordinates := struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&coordinates); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if err := user.UpdateLastLocation(coordinates.Lat, coordinates.Lng); err != nil {
		logg.Errorf("Unable to record last location for user %v: %v", user.ID, err)
	}

	summary := emergencyDispatcher.Dispatch(user, coordinates.Lat, coordinates.Lng)

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data: map[string]interface{}{
			"message":  "SOS alert triggered successfully. Your contacts have been notified.",
			"dispatch": summary,
		},
	}, http.StatusOK)
}

func nearbyFacilities(rw http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinatesFromQuery(rw, r)
	if !ok {
		return
	}

	facilities, err := facilityResolver.NearbyFacilities(r.Context(), lat, lng)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: facilities}, http.StatusOK)
}

func activeHazard(rw http.ResponseWriter, r *http.Request) {
	lat, lng, ok := coordinatesFromQuery(rw, r)
	if !ok {
		return
	}

	hazard, err := hazardResolver.ActiveHazard(r.Context(), lat, lng)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: hazard}, http.StatusOK)
}
